package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// WeekCycleRepository persists lock and generation stamps per week
type WeekCycleRepository struct {
	db *DB
}

// NewWeekCycleRepository creates a new week cycle repository
func NewWeekCycleRepository(db *DB) *WeekCycleRepository {
	return &WeekCycleRepository{db: db}
}

// GetWeekCycle returns the week's record or nil if it has none yet
func (r *WeekCycleRepository) GetWeekCycle(ctx context.Context, weekStart time.Time) (*models.WeekCycle, error) {
	c := &models.WeekCycle{}
	err := r.db.QueryRowContext(ctx, `
		SELECT week_start, locked_at, last_generated_at, slots_generated, tasks_processed, unscheduled
		FROM week_cycles
		WHERE week_start = $1
	`, weekStart).Scan(&c.WeekStart, &c.LockedAt, &c.LastGeneratedAt, &c.SlotsGenerated, &c.TasksProcessed, &c.Unscheduled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get week cycle: %w", err)
	}
	return c, nil
}

// MarkLocked records the lock time once; later calls keep the first value
func (r *WeekCycleRepository) MarkLocked(ctx context.Context, weekStart, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO week_cycles (week_start, locked_at)
		VALUES ($1, $2)
		ON CONFLICT (week_start) DO UPDATE SET
			locked_at = COALESCE(week_cycles.locked_at, EXCLUDED.locked_at)
	`, weekStart, at)
	if err != nil {
		return fmt.Errorf("failed to mark week locked: %w", err)
	}
	return nil
}

// MarkGenerated records the outcome of the latest committed generation
func (r *WeekCycleRepository) MarkGenerated(ctx context.Context, weekStart, at time.Time, result *scheduling.GenerationResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO week_cycles (week_start, last_generated_at, slots_generated, tasks_processed, unscheduled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (week_start) DO UPDATE SET
			last_generated_at = EXCLUDED.last_generated_at,
			slots_generated = EXCLUDED.slots_generated,
			tasks_processed = EXCLUDED.tasks_processed,
			unscheduled = EXCLUDED.unscheduled
	`, weekStart, at, result.SlotsGenerated, result.TasksProcessed, result.Unscheduled)
	if err != nil {
		return fmt.Errorf("failed to mark week generated: %w", err)
	}
	return nil
}
