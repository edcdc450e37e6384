package scheduling

import (
	"slices"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// Range is a half-open [Start, End) interval within a day.
type Range struct {
	Start models.ClockTime
	End   models.ClockTime
}

// Overlaps reports whether r and o share any minute.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Within reports whether r lies entirely inside [windowStart, windowEnd).
func (r Range) Within(windowStart, windowEnd models.ClockTime) bool {
	return r.Start >= windowStart && r.End <= windowEnd
}

// FindSlot returns the earliest range of the given length inside
// [dayOpen, dayClose) that does not overlap any occupied range. The occupied
// slice is not modified.
func FindSlot(dayOpen, dayClose models.ClockTime, minutes int, occupied []Range) (Range, bool) {
	if minutes <= 0 || dayClose <= dayOpen {
		return Range{}, false
	}
	d := models.ClockTime(minutes)

	sorted := slices.Clone(occupied)
	slices.SortFunc(sorted, func(a, b Range) int {
		if a.Start != b.Start {
			return int(a.Start - b.Start)
		}
		return int(a.End - b.End)
	})

	cursor := dayOpen
	for _, r := range sorted {
		if cursor+d <= r.Start {
			break
		}
		cursor = max(cursor, r.End)
	}
	if cursor+d <= dayClose {
		return Range{Start: cursor, End: cursor + d}, true
	}
	return Range{}, false
}
