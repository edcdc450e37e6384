package database

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// ErrInvalidTransition is returned when a slot cannot move to the requested status
var ErrInvalidTransition = errors.New("invalid slot status transition")

// UserRepositoryInterface defines the user operations used by the auth middleware
type UserRepositoryInterface interface {
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// SlotStatusUpdater changes a slot's status on behalf of its owner
type SlotStatusUpdater interface {
	UpdateStatus(ctx context.Context, id, userID uuid.UUID, next models.SlotStatus) (*models.ScheduleSlot, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface       = (*UserRepository)(nil)
	_ SlotStatusUpdater             = (*SlotRepository)(nil)
	_ scheduling.AvailabilityStore  = (*AvailabilityRepository)(nil)
	_ scheduling.TaskSource         = (*TaskRepository)(nil)
	_ scheduling.SettingsStore      = (*AgendaSettingsRepository)(nil)
	_ scheduling.SlotStore          = (*SlotRepository)(nil)
	_ scheduling.SlotLookup         = (*SlotRepository)(nil)
	_ scheduling.CycleStore         = (*WeekCycleRepository)(nil)
	_ scheduling.Roster             = (*UserRepository)(nil)
	_ scheduling.ChangeRequestStore = (*ChangeRequestRepository)(nil)
)
