package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// SlotRepository handles schedule slot database operations
type SlotRepository struct {
	db *DB
}

// NewSlotRepository creates a new slot repository
func NewSlotRepository(db *DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, task_id, user_id, organization_id, week_start, slot_date, start_minute, end_minute, status, is_collaborative, collaborator_id, created_at, updated_at`

// GetWeekSlots returns every slot of the given users for the week
func (r *SlotRepository) GetWeekSlots(ctx context.Context, userIDs []uuid.UUID, weekStart time.Time) ([]models.ScheduleSlot, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM schedule_slots
		WHERE week_start = $1 AND user_id = ANY($2::uuid[])
		ORDER BY slot_date, start_minute, user_id
	`, weekStart, pq.Array(uuidStrings(userIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to query week slots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanSlots(rows)
}

// GetSlot returns a single slot
func (r *SlotRepository) GetSlot(ctx context.Context, id uuid.UUID) (*models.ScheduleSlot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+slotColumns+` FROM schedule_slots WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query slot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	slots, err := scanSlots(rows)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("slot %s: %w", id, models.ErrNotFound)
	}
	return &slots[0], nil
}

// ReplaceWeekSlots deletes the pending slots of userIDs for the week and
// inserts slots in one transaction. The partner rows of collaborative pairs
// are deleted with them so a pair never loses one side. Tasks with an
// accepted or completed row are left alone.
func (r *SlotRepository) ReplaceWeekSlots(ctx context.Context, userIDs []uuid.UUID, weekStart time.Time, slots []models.ScheduleSlot) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		users := pq.Array(uuidStrings(userIDs))
		_, err := tx.ExecContext(ctx, `
			DELETE FROM schedule_slots
			WHERE week_start = $1
			  AND status = $3
			  AND (user_id = ANY($2::uuid[]) OR (is_collaborative AND collaborator_id = ANY($2::uuid[])))
			  AND task_id NOT IN (
				SELECT task_id FROM schedule_slots
				WHERE week_start = $1 AND status IN ($4, $5)
			  )
		`, weekStart, users, models.SlotStatusPending, models.SlotStatusAccepted, models.SlotStatusCompleted)
		if err != nil {
			return fmt.Errorf("failed to delete pending slots: %w", err)
		}

		if len(slots) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO schedule_slots (`+slotColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare slot insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for i := range slots {
			s := &slots[i]
			if _, err := stmt.ExecContext(ctx,
				s.ID,
				s.TaskID,
				s.UserID,
				s.OrganizationID,
				s.WeekStart,
				s.Date,
				int(s.Start),
				int(s.End),
				s.Status,
				s.IsCollaborative,
				s.CollaboratorID,
				now,
			); err != nil {
				return fmt.Errorf("failed to insert slot for task %s: %w", s.TaskID, err)
			}
			s.CreatedAt, s.UpdatedAt = now, now
		}
		return nil
	})
}

// UpdateStatus moves a slot owned by userID to next, enforcing the allowed
// transitions. Cancelling one side of a collaborative pair cancels the
// partner row too. It returns models.ErrNotFound when the user has no such
// slot.
func (r *SlotRepository) UpdateStatus(ctx context.Context, id, userID uuid.UUID, next models.SlotStatus) (*models.ScheduleSlot, error) {
	var updated *models.ScheduleSlot
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var (
			current         models.SlotStatus
			taskID          uuid.UUID
			weekStart       time.Time
			isCollaborative bool
			collaboratorID  *uuid.UUID
		)
		err := tx.QueryRowContext(ctx, `
			SELECT status, task_id, week_start, is_collaborative, collaborator_id
			FROM schedule_slots
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`, id, userID).Scan(&current, &taskID, &weekStart, &isCollaborative, &collaboratorID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("slot %s: %w", id, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}
		if !current.CanTransitionTo(next) {
			return transitionError(current, next)
		}

		now := time.Now()
		rows, err := tx.QueryContext(ctx, `
			UPDATE schedule_slots SET status = $2, updated_at = $3
			WHERE id = $1
			RETURNING `+slotColumns, id, next, now)
		if err != nil {
			return fmt.Errorf("failed to update slot status: %w", err)
		}
		slots, err := scanSlots(rows)
		_ = rows.Close()
		if err != nil {
			return err
		}
		if len(slots) == 1 {
			updated = &slots[0]
		}

		if next == models.SlotStatusCancelled && isCollaborative && collaboratorID != nil {
			if _, err := tx.ExecContext(ctx, `
				UPDATE schedule_slots SET status = $4, updated_at = $5
				WHERE task_id = $1 AND user_id = $2 AND week_start = $3 AND status IN ($6, $7)
			`, taskID, *collaboratorID, weekStart, models.SlotStatusCancelled, now,
				models.SlotStatusPending, models.SlotStatusAccepted); err != nil {
				return fmt.Errorf("failed to cancel collaborator slot: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RecordUnscheduled replaces the unscheduled report of the users for the week
func (r *SlotRepository) RecordUnscheduled(ctx context.Context, userIDs []uuid.UUID, weekStart time.Time, tasks []models.UnscheduledTask) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM unscheduled_tasks WHERE week_start = $1 AND user_id = ANY($2::uuid[])
		`, weekStart, pq.Array(uuidStrings(userIDs))); err != nil {
			return fmt.Errorf("failed to clear unscheduled tasks: %w", err)
		}
		now := time.Now()
		for _, u := range tasks {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO unscheduled_tasks (task_id, user_id, week_start, collaborator_id, reason, recorded_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (task_id, user_id, week_start)
				DO UPDATE SET collaborator_id = EXCLUDED.collaborator_id, reason = EXCLUDED.reason, recorded_at = EXCLUDED.recorded_at
			`, u.TaskID, u.UserID, weekStart, u.CollaboratorID, u.Reason, now); err != nil {
				return fmt.Errorf("failed to record unscheduled task %s: %w", u.TaskID, err)
			}
		}
		return nil
	})
}

// ListUnscheduled returns the last recorded unscheduled tasks of a user
func (r *SlotRepository) ListUnscheduled(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]models.UnscheduledTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, user_id, week_start, collaborator_id, reason
		FROM unscheduled_tasks
		WHERE week_start = $1 AND (user_id = $2 OR collaborator_id = $2)
		ORDER BY recorded_at, task_id
	`, weekStart, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unscheduled tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.UnscheduledTask
	for rows.Next() {
		var u models.UnscheduledTask
		if err := rows.Scan(&u.TaskID, &u.UserID, &u.WeekStart, &u.CollaboratorID, &u.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan unscheduled task: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unscheduled tasks: %w", err)
	}
	return out, nil
}

func scanSlots(rows *sql.Rows) ([]models.ScheduleSlot, error) {
	var slots []models.ScheduleSlot
	for rows.Next() {
		var (
			s          models.ScheduleSlot
			start, end int
		)
		if err := rows.Scan(
			&s.ID,
			&s.TaskID,
			&s.UserID,
			&s.OrganizationID,
			&s.WeekStart,
			&s.Date,
			&start,
			&end,
			&s.Status,
			&s.IsCollaborative,
			&s.CollaboratorID,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		s.Start, s.End = models.ClockTime(start), models.ClockTime(end)
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slots: %w", err)
	}
	return slots, nil
}

func transitionError(from, to models.SlotStatus) error {
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}
