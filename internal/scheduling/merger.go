package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// AgendaMerger builds the list of tasks a user's merged agenda should
// schedule from personal and organizational pools.
type AgendaMerger struct {
	tasks TaskSource
}

// NewAgendaMerger creates a merger over the given task source.
func NewAgendaMerger(tasks TaskSource) *AgendaMerger {
	return &AgendaMerger{tasks: tasks}
}

// EligibleTasks returns personal tasks followed by organization tasks,
// according to settings. A nil settings value means defaults. An empty
// result means there is nothing to schedule.
func (m *AgendaMerger) EligibleTasks(ctx context.Context, userID uuid.UUID, settings *models.GlobalAgendaSettings, weekStart time.Time) ([]models.Task, error) {
	if settings == nil {
		settings = models.DefaultAgendaSettings(userID)
	}

	var out []models.Task
	if settings.ShowPersonalTasks {
		personal, err := m.tasks.PersonalTasks(ctx, userID, weekStart)
		if err != nil {
			return nil, fmt.Errorf("failed to load personal tasks: %w", err)
		}
		out = append(out, personal...)
	}

	if settings.ShowOrgTasks {
		if orgs := settings.LinkedOrganizationIDs; len(orgs) > 0 {
			orgTasks, err := m.tasks.OrganizationTasks(ctx, userID, orgs, weekStart)
			if err != nil {
				return nil, fmt.Errorf("failed to load organization tasks: %w", err)
			}
			out = append(out, orgTasks...)
		}
	}
	return out, nil
}
