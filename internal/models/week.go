package models

import (
	"time"

	"github.com/google/uuid"
)

// WeekPhase is the position of a week within its recurring cycle.
type WeekPhase string

const (
	WeekPhaseCollecting       WeekPhase = "collecting"
	WeekPhasePreviewAvailable WeekPhase = "preview_available"
	WeekPhaseLockedFinal      WeekPhase = "locked_final"
	WeekPhaseChangeWindow     WeekPhase = "change_window"
	WeekPhaseClosed           WeekPhase = "closed"
)

// AllowsPreview reports whether per-user preview runs may happen.
func (p WeekPhase) AllowsPreview() bool {
	return p == WeekPhaseCollecting || p == WeekPhasePreviewAvailable
}

// AllowsFinalGeneration reports whether committed slots may be (re)generated.
func (p WeekPhase) AllowsFinalGeneration() bool {
	return p == WeekPhaseLockedFinal || p == WeekPhaseChangeWindow
}

// WeekCycle is the persisted part of a week's cycle: when it was locked and
// what the last final generation produced.
type WeekCycle struct {
	WeekStart       time.Time  `json:"week_start"`
	LockedAt        *time.Time `json:"locked_at,omitempty"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
	SlotsGenerated  int        `json:"slots_generated"`
	TasksProcessed  int        `json:"tasks_processed"`
	Unscheduled     int        `json:"unscheduled"`
}

// WeekCycleState is the derived view of a week served to callers.
type WeekCycleState struct {
	WeekCycle
	Phase              WeekPhase `json:"phase"`
	Submitted          int       `json:"submitted"`
	Expected           int       `json:"expected"`
	LockAt             time.Time `json:"lock_at"`
	ChangeWindowEndsAt time.Time `json:"change_window_ends_at"`
}

// Complete reports whether every expected user has submitted availability.
func (s *WeekCycleState) Complete() bool {
	return s.Expected > 0 && s.Submitted >= s.Expected
}

// Locked reports whether the final lock has been recorded.
func (s *WeekCycleState) Locked() bool {
	return s.LockedAt != nil
}

// UnscheduledReason explains why a task received no slot.
type UnscheduledReason string

const (
	ReasonNoFreeSlot          UnscheduledReason = "no_free_slot"
	ReasonNoMutualSlot        UnscheduledReason = "no_mutual_slot"
	ReasonMissingAvailability UnscheduledReason = "missing_availability"
	ReasonInvalidDuration     UnscheduledReason = "invalid_duration"
)

// UnscheduledTask reports a task that could not be placed in a run.
type UnscheduledTask struct {
	TaskID         uuid.UUID         `json:"task_id"`
	UserID         uuid.UUID         `json:"user_id"`
	CollaboratorID *uuid.UUID        `json:"collaborator_id,omitempty"`
	WeekStart      time.Time         `json:"week_start"`
	Reason         UnscheduledReason `json:"reason"`
}

// ChangeRequestStatus is the state of a flagged slot.
type ChangeRequestStatus string

const (
	ChangeRequestOpen     ChangeRequestStatus = "open"
	ChangeRequestResolved ChangeRequestStatus = "resolved"
)

// ChangeRequest is a user's flag on a conflicting slot, raised during the
// change window and resolved by hand.
type ChangeRequest struct {
	ID        uuid.UUID           `json:"id"`
	SlotID    uuid.UUID           `json:"slot_id"`
	UserID    uuid.UUID           `json:"user_id"`
	WeekStart time.Time           `json:"week_start"`
	Reason    string              `json:"reason"`
	Status    ChangeRequestStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}
