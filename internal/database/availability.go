package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// AvailabilityRepository handles weekly availability submissions
type AvailabilityRepository struct {
	db *DB
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(db *DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Submit stores a submission as the current availability of its user-week.
// Any earlier submission for the same user-week is marked superseded and the
// new row records which revision it replaces.
func (r *AvailabilityRepository) Submit(ctx context.Context, a *models.WeeklyAvailability) error {
	days, err := json.Marshal(a.Days)
	if err != nil {
		return fmt.Errorf("failed to marshal availability days: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var (
			previousID       uuid.UUID
			previousRevision int
		)
		err := tx.QueryRowContext(ctx, `
			UPDATE weekly_availability
			SET superseded_at = $3
			WHERE user_id = $1 AND week_start = $2 AND superseded_at IS NULL
			RETURNING id, revision
		`, a.UserID, a.WeekStart, a.SubmittedAt).Scan(&previousID, &previousRevision)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			a.Revision = 1
			a.SupersedesID = nil
		case err != nil:
			return fmt.Errorf("failed to supersede availability: %w", err)
		default:
			a.Revision = previousRevision + 1
			a.SupersedesID = &previousID
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO weekly_availability
				(id, user_id, week_start, days, preferred_hours_per_day, submitted_at, revision, supersedes_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, a.ID, a.UserID, a.WeekStart, days, a.PreferredHoursPerDay, a.SubmittedAt, a.Revision, a.SupersedesID)
		if err != nil {
			return fmt.Errorf("failed to insert availability: %w", err)
		}
		return nil
	})
}

// GetAvailability returns the current submission or nil when none exists
func (r *AvailabilityRepository) GetAvailability(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyAvailability, error) {
	a := &models.WeeklyAvailability{}
	var days []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, week_start, days, preferred_hours_per_day, submitted_at, revision, supersedes_id
		FROM weekly_availability
		WHERE user_id = $1 AND week_start = $2 AND superseded_at IS NULL
	`, userID, weekStart).Scan(
		&a.ID,
		&a.UserID,
		&a.WeekStart,
		&days,
		&a.PreferredHoursPerDay,
		&a.SubmittedAt,
		&a.Revision,
		&a.SupersedesID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}

	if err := json.Unmarshal(days, &a.Days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal availability days: %w", err)
	}
	return a, nil
}

// ListSubmittedUsers returns every user with a current submission for the week
func (r *AvailabilityRepository) ListSubmittedUsers(ctx context.Context, weekStart time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id
		FROM weekly_availability
		WHERE week_start = $1 AND superseded_at IS NULL
		ORDER BY user_id
	`, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to list submitted users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanUUIDs(rows)
}

func scanUUIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}
