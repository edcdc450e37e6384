package scheduling

import (
	"slices"

	"github.com/google/uuid"
)

type occupancyKey struct {
	user uuid.UUID
	day  int
}

// Occupancy is the per-run working set of occupied ranges, keyed by user and
// day offset. It is loaded once from committed slots and grows as the run
// assigns new slots. It is not safe for concurrent use.
type Occupancy struct {
	ranges map[occupancyKey][]Range
}

// NewOccupancy creates an empty working set.
func NewOccupancy() *Occupancy {
	return &Occupancy{ranges: make(map[occupancyKey][]Range)}
}

// Add marks r as occupied for user on day.
func (o *Occupancy) Add(user uuid.UUID, day int, r Range) {
	k := occupancyKey{user: user, day: day}
	o.ranges[k] = append(o.ranges[k], r)
}

// Ranges returns a copy of the occupied ranges for user on day.
func (o *Occupancy) Ranges(user uuid.UUID, day int) []Range {
	return slices.Clone(o.ranges[occupancyKey{user: user, day: day}])
}

// Union returns the occupied ranges of every listed user on day.
func (o *Occupancy) Union(day int, users ...uuid.UUID) []Range {
	var out []Range
	for _, u := range users {
		out = append(out, o.ranges[occupancyKey{user: u, day: day}]...)
	}
	return out
}

// Free reports whether r collides with nothing held by user on day.
func (o *Occupancy) Free(user uuid.UUID, day int, r Range) bool {
	for _, held := range o.ranges[occupancyKey{user: user, day: day}] {
		if held.Overlaps(r) {
			return false
		}
	}
	return true
}
