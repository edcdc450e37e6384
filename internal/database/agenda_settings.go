package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// AgendaSettingsRepository handles global agenda settings
type AgendaSettingsRepository struct {
	db *DB
}

// NewAgendaSettingsRepository creates a new agenda settings repository
func NewAgendaSettingsRepository(db *DB) *AgendaSettingsRepository {
	return &AgendaSettingsRepository{db: db}
}

// GetAgendaSettings returns the user's settings or nil if never saved
func (r *AgendaSettingsRepository) GetAgendaSettings(ctx context.Context, userID uuid.UUID) (*models.GlobalAgendaSettings, error) {
	var (
		s      = &models.GlobalAgendaSettings{}
		linked pq.StringArray
		colors []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, linked_organization_ids, show_personal_tasks, show_org_tasks, colors, updated_at
		FROM global_agenda_settings
		WHERE user_id = $1
	`, userID).Scan(&s.UserID, &linked, &s.ShowPersonalTasks, &s.ShowOrgTasks, &colors, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agenda settings: %w", err)
	}

	if s.LinkedOrganizationIDs, err = parseUUIDStrings(linked); err != nil {
		return nil, fmt.Errorf("failed to parse linked organizations: %w", err)
	}
	if len(colors) > 0 {
		if err := json.Unmarshal(colors, &s.Colors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal agenda colors: %w", err)
		}
	}
	return s, nil
}

// Upsert saves the user's settings
func (r *AgendaSettingsRepository) Upsert(ctx context.Context, s *models.GlobalAgendaSettings) error {
	colors := s.Colors
	if colors == nil {
		colors = map[string]string{}
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return fmt.Errorf("failed to marshal agenda colors: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO global_agenda_settings (user_id, linked_organization_ids, show_personal_tasks, show_org_tasks, colors, updated_at)
		VALUES ($1, $2::uuid[], $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			linked_organization_ids = EXCLUDED.linked_organization_ids,
			show_personal_tasks = EXCLUDED.show_personal_tasks,
			show_org_tasks = EXCLUDED.show_org_tasks,
			colors = EXCLUDED.colors,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`, s.UserID, pq.Array(uuidStrings(s.LinkedOrganizationIDs)), s.ShowPersonalTasks, s.ShowOrgTasks, colorsJSON, time.Now()).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save agenda settings: %w", err)
	}
	return nil
}
