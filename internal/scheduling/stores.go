package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// AvailabilityStore reads submitted weekly availability.
type AvailabilityStore interface {
	// GetAvailability returns the current submission, or nil when the user
	// has not submitted for the week.
	GetAvailability(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyAvailability, error)
	ListSubmittedUsers(ctx context.Context, weekStart time.Time) ([]uuid.UUID, error)
}

// TaskSource is the read-only view over personal and organizational tasks.
type TaskSource interface {
	PersonalTasks(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]models.Task, error)
	OrganizationTasks(ctx context.Context, userID uuid.UUID, orgIDs []uuid.UUID, weekStart time.Time) ([]models.Task, error)
	// OwnersLedBy returns the owners of collaborative tasks in which userID
	// is the leader.
	OwnersLedBy(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]uuid.UUID, error)
}

// SettingsStore reads a user's agenda settings; nil means defaults.
type SettingsStore interface {
	GetAgendaSettings(ctx context.Context, userID uuid.UUID) (*models.GlobalAgendaSettings, error)
}

// SlotStore reads and atomically replaces a week's slots.
type SlotStore interface {
	GetWeekSlots(ctx context.Context, userIDs []uuid.UUID, weekStart time.Time) ([]models.ScheduleSlot, error)
	// ReplaceWeekSlots deletes the pending slots of userIDs for the week,
	// together with the partner rows of their collaborative pairs, and
	// inserts slots in one transaction.
	ReplaceWeekSlots(ctx context.Context, userIDs []uuid.UUID, weekStart time.Time, slots []models.ScheduleSlot) error
	RecordUnscheduled(ctx context.Context, userIDs []uuid.UUID, weekStart time.Time, tasks []models.UnscheduledTask) error
}

// SlotLookup fetches a single slot.
type SlotLookup interface {
	GetSlot(ctx context.Context, id uuid.UUID) (*models.ScheduleSlot, error)
}

// CycleStore persists the lock and generation stamps of a week.
type CycleStore interface {
	// GetWeekCycle returns nil when the week has no record yet.
	GetWeekCycle(ctx context.Context, weekStart time.Time) (*models.WeekCycle, error)
	MarkLocked(ctx context.Context, weekStart time.Time, at time.Time) error
	MarkGenerated(ctx context.Context, weekStart time.Time, at time.Time, result *GenerationResult) error
}

// Roster lists the users expected to submit availability for a week.
type Roster interface {
	ExpectedUsers(ctx context.Context, weekStart time.Time) ([]uuid.UUID, error)
}

// ChangeRequestStore records flagged slots.
type ChangeRequestStore interface {
	CreateChangeRequest(ctx context.Context, req *models.ChangeRequest) error
}

// Locker provides mutual exclusion for a user-week across processes.
type Locker interface {
	// Acquire blocks until key is held or ctx is done. The returned func
	// releases the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}
