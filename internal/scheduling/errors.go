package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidWeekStart   = errors.New("week start does not fall on the configured week-start day")
	ErrWeekClosed         = errors.New("week is closed")
	ErrWeekNotLocked      = errors.New("week is not locked; only previews are available")
	ErrWeekLocked         = errors.New("week is locked; previews are no longer available")
	ErrLockNotDue         = errors.New("week cannot be locked before its cutoff")
	ErrNotSubmitted       = errors.New("availability has not been submitted for this week")
	ErrChangeWindowClosed = errors.New("change requests are only accepted during the change window")
	ErrSlotNotFound       = errors.New("slot not found")
	ErrLockHeld           = errors.New("schedule lock is held by another run")
)

// GenerationError reports a failed run together with the scope it covered,
// so the caller knows which users and week to retry.
type GenerationError struct {
	UserIDs   []uuid.UUID
	WeekStart time.Time
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation for week %s (%d users) failed: %v", e.WeekStart.Format(DateLayout), len(e.UserIDs), e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
