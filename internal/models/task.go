package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle of a task in the external task source.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Task is a unit of work to be placed on an agenda. Tasks are created by
// other subsystems and are never mutated by the scheduler.
type Task struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	OrganizationID  *uuid.UUID `json:"organization_id,omitempty"`
	LeaderID        *uuid.UUID `json:"leader_id,omitempty"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	WeekStart       time.Time  `json:"week_start"`
	Phase           string     `json:"phase,omitempty"`
	Status          TaskStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsPersonal reports whether the task belongs to no organization.
func (t *Task) IsPersonal() bool {
	return t.OrganizationID == nil
}

// IsCollaborative reports whether the task needs a second participant.
// A task naming its own owner as leader is treated as individual work.
func (t *Task) IsCollaborative() bool {
	return t.LeaderID != nil && *t.LeaderID != t.OwnerID
}
