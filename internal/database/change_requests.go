package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// ChangeRequestRepository stores slots flagged during the change window
type ChangeRequestRepository struct {
	db *DB
}

// NewChangeRequestRepository creates a new change request repository
func NewChangeRequestRepository(db *DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

// CreateChangeRequest inserts a new open change request
func (r *ChangeRequestRepository) CreateChangeRequest(ctx context.Context, req *models.ChangeRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO change_requests (id, slot_id, user_id, week_start, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, req.SlotID, req.UserID, req.WeekStart, req.Reason, req.Status, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create change request: %w", err)
	}
	return nil
}

// ListOpen returns the open change requests of a week
func (r *ChangeRequestRepository) ListOpen(ctx context.Context, weekStart time.Time) ([]models.ChangeRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slot_id, user_id, week_start, reason, status, created_at
		FROM change_requests
		WHERE week_start = $1 AND status = $2
		ORDER BY created_at
	`, weekStart, models.ChangeRequestOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query change requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ChangeRequest
	for rows.Next() {
		var c models.ChangeRequest
		if err := rows.Scan(&c.ID, &c.SlotID, &c.UserID, &c.WeekStart, &c.Reason, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan change request: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating change requests: %w", err)
	}
	return out, nil
}

// Resolve closes a change request
func (r *ChangeRequestRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE change_requests SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = $4
	`, id, models.ChangeRequestResolved, time.Now(), models.ChangeRequestOpen)
	if err != nil {
		return fmt.Errorf("failed to resolve change request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to resolve change request: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("change request %s: %w", id, models.ErrNotFound)
	}
	return nil
}
