package scheduling

import (
	"fmt"
	"time"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// DefaultWeekStartDay is the canonical first day of a scheduling week.
const DefaultWeekStartDay = time.Wednesday

// WeekCalendar maps calendar dates onto scheduling weeks. Dates are civil
// dates carried as UTC midnight values; Location is only used to turn an
// instant into the local civil date and back.
type WeekCalendar struct {
	StartDay time.Weekday
	Location *time.Location
}

// NewWeekCalendar creates a calendar starting weeks on startDay.
func NewWeekCalendar(startDay time.Weekday, loc *time.Location) WeekCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return WeekCalendar{StartDay: startDay, Location: loc}
}

func (c WeekCalendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// CivilDate truncates t to its date in the calendar's location.
func (c WeekCalendar) CivilDate(t time.Time) time.Time {
	y, m, d := t.In(c.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStartFor returns the start of the week containing instant t.
func (c WeekCalendar) WeekStartFor(t time.Time) time.Time {
	date := c.CivilDate(t)
	back := (int(date.Weekday()) - int(c.StartDay) + 7) % 7
	return date.AddDate(0, 0, -back)
}

// NextWeekStart returns the first week start strictly after instant t.
func (c WeekCalendar) NextWeekStart(t time.Time) time.Time {
	return c.WeekStartFor(t).AddDate(0, 0, models.DaysPerWeek)
}

// Normalize checks that weekStart is a valid week start and strips any
// time-of-day component.
func (c WeekCalendar) Normalize(weekStart time.Time) (time.Time, error) {
	y, m, d := weekStart.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if date.Weekday() != c.StartDay {
		return time.Time{}, fmt.Errorf("%w: %s is a %s, weeks start on %s", ErrInvalidWeekStart, date.Format(DateLayout), date.Weekday(), c.StartDay)
	}
	return date, nil
}

// ParseWeekStart parses a YYYY-MM-DD week start.
func (c WeekCalendar) ParseWeekStart(s string) (time.Time, error) {
	date, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeekStart, s)
	}
	return c.Normalize(date)
}

// DayDate returns the date of the day at offset within the week.
func (c WeekCalendar) DayDate(weekStart time.Time, offset int) time.Time {
	return weekStart.AddDate(0, 0, offset)
}

// DayIndex returns the offset of date within the week starting at weekStart.
func (c WeekCalendar) DayIndex(weekStart, date time.Time) (int, bool) {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := int(day.Sub(weekStart).Hours() / 24)
	if offset < 0 || offset >= models.DaysPerWeek {
		return 0, false
	}
	return offset, true
}

// Instant converts a civil date and a clock time into an instant in the
// calendar's location.
func (c WeekCalendar) Instant(date time.Time, clock models.ClockTime) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, c.location())
}
