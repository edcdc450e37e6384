package models

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus represents the status of a schedule slot
type SlotStatus string

const (
	SlotStatusPending   SlotStatus = "pending"
	SlotStatusAccepted  SlotStatus = "accepted"
	SlotStatusCompleted SlotStatus = "completed"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// Active reports whether a slot with this status occupies time.
func (s SlotStatus) Active() bool {
	return s != SlotStatusCancelled
}

// Committed reports whether the user has confirmed the slot. Committed slots
// survive regeneration.
func (s SlotStatus) Committed() bool {
	return s == SlotStatusAccepted || s == SlotStatusCompleted
}

// CanTransitionTo reports whether a user may move a slot from s to next.
func (s SlotStatus) CanTransitionTo(next SlotStatus) bool {
	switch s {
	case SlotStatusPending:
		return next == SlotStatusAccepted || next == SlotStatusCompleted || next == SlotStatusCancelled
	case SlotStatusAccepted:
		return next == SlotStatusCompleted || next == SlotStatusCancelled
	default:
		return false
	}
}

// ScheduleSlot is a task placed on one user's agenda.
type ScheduleSlot struct {
	ID              uuid.UUID  `json:"id"`
	TaskID          uuid.UUID  `json:"task_id"`
	UserID          uuid.UUID  `json:"user_id"`
	OrganizationID  *uuid.UUID `json:"organization_id,omitempty"`
	WeekStart       time.Time  `json:"week_start"`
	Date            time.Time  `json:"date"`
	Start           ClockTime  `json:"start"`
	End             ClockTime  `json:"end"`
	Status          SlotStatus `json:"status"`
	IsCollaborative bool       `json:"is_collaborative"`
	CollaboratorID  *uuid.UUID `json:"collaborator_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DurationMinutes returns the length of the slot.
func (s *ScheduleSlot) DurationMinutes() int {
	return int(s.End - s.Start)
}

// Overlaps reports whether two slots of the same user collide.
func (s *ScheduleSlot) Overlaps(other *ScheduleSlot) bool {
	if s.UserID != other.UserID || !s.Date.Equal(other.Date) {
		return false
	}
	if !s.Status.Active() || !other.Status.Active() {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}
