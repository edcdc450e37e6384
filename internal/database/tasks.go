package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// TaskRepository reads tasks owned by the task management subsystems. Only
// pending tasks are candidates for scheduling.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, owner_id, organization_id, leader_id, title, duration_minutes, week_start, phase, status, created_at`

// PersonalTasks returns the user's pending tasks that belong to no organization
func (r *TaskRepository) PersonalTasks(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner_id = $1 AND week_start = $2 AND organization_id IS NULL AND status = $3
		ORDER BY created_at, id
	`, userID, weekStart, models.TaskStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query personal tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTasks(rows)
}

// OrganizationTasks returns the user's pending tasks in the given organizations
func (r *TaskRepository) OrganizationTasks(ctx context.Context, userID uuid.UUID, orgIDs []uuid.UUID, weekStart time.Time) ([]models.Task, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner_id = $1 AND week_start = $2 AND organization_id = ANY($3::uuid[]) AND status = $4
		ORDER BY created_at, id
	`, userID, weekStart, pq.Array(uuidStrings(orgIDs)), models.TaskStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query organization tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTasks(rows)
}

// OwnersLedBy returns the owners of pending collaborative tasks led by userID
func (r *TaskRepository) OwnersLedBy(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT owner_id
		FROM tasks
		WHERE leader_id = $1 AND owner_id <> $1 AND week_start = $2 AND status = $3
		ORDER BY owner_id
	`, userID, weekStart, models.TaskStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborative task owners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanUUIDs(rows)
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(
			&t.ID,
			&t.OwnerID,
			&t.OrganizationID,
			&t.LeaderID,
			&t.Title,
			&t.DurationMinutes,
			&t.WeekStart,
			&t.Phase,
			&t.Status,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDStrings(values []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", v, err)
		}
		out = append(out, id)
	}
	return out, nil
}
