// Package app assembles the scheduling stack shared by the api, worker and
// cli binaries.
package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// Repositories are the PostgreSQL stores behind one Controller
type Repositories struct {
	Users        *database.UserRepository
	Availability *database.AvailabilityRepository
	Settings     *database.AgendaSettingsRepository
	Tasks        *database.TaskRepository
	Slots        *database.SlotRepository
	Cycles       *database.WeekCycleRepository
	Changes      *database.ChangeRequestRepository
}

// NewRepositories creates every repository on db
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:        database.NewUserRepository(db),
		Availability: database.NewAvailabilityRepository(db),
		Settings:     database.NewAgendaSettingsRepository(db),
		Tasks:        database.NewTaskRepository(db),
		Slots:        database.NewSlotRepository(db),
		Cycles:       database.NewWeekCycleRepository(db),
		Changes:      database.NewChangeRequestRepository(db),
	}
}

// NewController wires a generator and lifecycle controller over repos.
// locker serializes generations per user across processes.
func NewController(repos *Repositories, cadence scheduling.Cadence, locker scheduling.Locker, lockTTL time.Duration, log *zap.Logger) *scheduling.Controller {
	generator := scheduling.NewGenerator(scheduling.GeneratorConfig{
		Calendar:     cadence.Calendar(),
		Availability: repos.Availability,
		Settings:     repos.Settings,
		Tasks:        repos.Tasks,
		Slots:        repos.Slots,
		Locker:       locker,
		LockTTL:      lockTTL,
		Logger:       log,
	})
	return scheduling.NewController(scheduling.ControllerConfig{
		Cadence:      cadence,
		Generator:    generator,
		Availability: repos.Availability,
		Cycles:       repos.Cycles,
		Roster:       repos.Users,
		Changes:      repos.Changes,
		Slots:        repos.Slots,
		Logger:       log,
	})
}
