package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DaysPerWeek is the number of day records carried by a weekly availability.
const DaysPerWeek = 7

// ErrInvalidAvailability is returned when an availability submission breaks
// its window invariants.
var ErrInvalidAvailability = errors.New("invalid availability")

// DayAvailability is one day of a user's weekly questionnaire.
type DayAvailability struct {
	Available bool      `json:"available"`
	OpenStart ClockTime `json:"open_start"`
	OpenEnd   ClockTime `json:"open_end"`
}

// HasWindow reports whether the day can host any slot at all.
func (d DayAvailability) HasWindow() bool {
	return d.Available && d.OpenEnd > d.OpenStart
}

// WeeklyAvailability is a user's declared availability for one week.
// Days is indexed by offset from the week-start date, so Days[0] is the
// week-start day itself.
type WeeklyAvailability struct {
	ID                   uuid.UUID                    `json:"id"`
	UserID               uuid.UUID                    `json:"user_id"`
	WeekStart            time.Time                    `json:"week_start"`
	Days                 [DaysPerWeek]DayAvailability `json:"days"`
	PreferredHoursPerDay float64                      `json:"preferred_hours_per_day"`
	SubmittedAt          time.Time                    `json:"submitted_at"`
	Revision             int                          `json:"revision"`
	SupersedesID         *uuid.UUID                   `json:"supersedes_id,omitempty"`
}

// Validate checks the per-day window invariant and the hours hint.
func (w *WeeklyAvailability) Validate() error {
	for i, day := range w.Days {
		if !day.Available {
			continue
		}
		if !day.OpenStart.Valid() || !day.OpenEnd.Valid() {
			return fmt.Errorf("%w: day %d has an out of range window", ErrInvalidAvailability, i)
		}
		if day.OpenEnd <= day.OpenStart {
			return fmt.Errorf("%w: day %d closes at %s before it opens at %s", ErrInvalidAvailability, i, day.OpenEnd, day.OpenStart)
		}
	}
	if w.PreferredHoursPerDay < 0 || w.PreferredHoursPerDay > 24 {
		return fmt.Errorf("%w: preferred hours per day must be between 0 and 24", ErrInvalidAvailability)
	}
	return nil
}

// AvailableDays returns the number of days with a usable window.
func (w *WeeklyAvailability) AvailableDays() int {
	n := 0
	for _, day := range w.Days {
		if day.HasWindow() {
			n++
		}
	}
	return n
}
