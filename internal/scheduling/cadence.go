package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/agenda-scheduler/internal/models"
)

const week = 7 * 24 * time.Hour

// Cadence is the recurring weekly timetable. It is configured once per
// deployment and every component derives week boundaries from it.
type Cadence struct {
	// WeekStartDay is the canonical first day of every week.
	WeekStartDay time.Weekday
	// LockLeadTime is how long before the week starts the final lock runs.
	LockLeadTime time.Duration
	// ChangeWindow is how long after the week starts change requests are
	// accepted. The week is closed afterwards.
	ChangeWindow time.Duration
	// LockWhenComplete locks a week before its cutoff once every expected
	// user has submitted availability.
	LockWhenComplete bool
	Location         *time.Location
}

// DefaultCadence locks at noon the day before a Wednesday week start and
// keeps the change window open for the whole week.
func DefaultCadence() Cadence {
	return Cadence{
		WeekStartDay:     DefaultWeekStartDay,
		LockLeadTime:     12 * time.Hour,
		ChangeWindow:     week,
		LockWhenComplete: true,
		Location:         time.UTC,
	}
}

// Validate checks that the cadence describes a sane weekly timetable.
func (c Cadence) Validate() error {
	var errs []error
	if c.WeekStartDay < time.Sunday || c.WeekStartDay > time.Saturday {
		errs = append(errs, fmt.Errorf("week start day %d is not a weekday", c.WeekStartDay))
	}
	if c.LockLeadTime < 0 || c.LockLeadTime >= week {
		errs = append(errs, fmt.Errorf("lock lead time %s must be within one week", c.LockLeadTime))
	}
	if c.ChangeWindow < 0 || c.ChangeWindow > week {
		errs = append(errs, fmt.Errorf("change window %s must be within one week", c.ChangeWindow))
	}
	return errors.Join(errs...)
}

// Calendar returns the week calendar implied by the cadence.
func (c Cadence) Calendar() WeekCalendar {
	return NewWeekCalendar(c.WeekStartDay, c.Location)
}

// StartsAt is the instant the week begins.
func (c Cadence) StartsAt(weekStart time.Time) time.Time {
	return c.Calendar().Instant(weekStart, 0)
}

// LockAt is the cutoff after which the week is locked regardless of
// outstanding submissions.
func (c Cadence) LockAt(weekStart time.Time) time.Time {
	return c.StartsAt(weekStart).Add(-c.LockLeadTime)
}

// ChangeWindowEndsAt is the instant the week closes.
func (c Cadence) ChangeWindowEndsAt(weekStart time.Time) time.Time {
	return c.StartsAt(weekStart).Add(c.ChangeWindow)
}

// PhaseAt derives the phase of the week at now.
func (c Cadence) PhaseAt(now, weekStart time.Time, anySubmitted, locked bool) models.WeekPhase {
	switch {
	case !now.Before(c.ChangeWindowEndsAt(weekStart)):
		return models.WeekPhaseClosed
	case !now.Before(c.StartsAt(weekStart)):
		return models.WeekPhaseChangeWindow
	case locked || !now.Before(c.LockAt(weekStart)):
		return models.WeekPhaseLockedFinal
	case anySubmitted:
		return models.WeekPhasePreviewAvailable
	default:
		return models.WeekPhaseCollecting
	}
}
