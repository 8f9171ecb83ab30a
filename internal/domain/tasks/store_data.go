package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfeval/internal/domain/scoring"
)

const taskColumns = `id, tenant_id, employee_id, COALESCE(assigned_by::text, ''), title, COALESCE(description, ''),
           status, difficulty, deadline, started_at, completed_at, progress_rating::float8, progress,
           created_at, updated_at`

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.TenantID, &t.EmployeeID, &t.AssignedBy, &t.Title, &t.Description,
		&t.Status, &t.Difficulty, &t.Deadline, &t.StartedAt, &t.CompletedAt, &t.ProgressRating, &t.Progress,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (s *Store) CreateTask(ctx context.Context, task Task) (Task, error) {
	return scanTask(s.DB.QueryRow(ctx, `
    INSERT INTO tasks (tenant_id, employee_id, assigned_by, title, description, status, difficulty, deadline)
    VALUES ($1,$2,NULLIF($3,'')::uuid,$4,NULLIF($5,''),$6,$7,$8)
    RETURNING `+taskColumns,
		task.TenantID, task.EmployeeID, task.AssignedBy, task.Title, task.Description, task.Status, task.Difficulty, task.Deadline))
}

func (s *Store) GetTask(ctx context.Context, tenantID, taskID string) (Task, error) {
	task, err := scanTask(s.DB.QueryRow(ctx, `
    SELECT `+taskColumns+`
    FROM tasks
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, taskID))
	if err != nil {
		return Task{}, err
	}
	updates, err := s.updatesFor(ctx, []string{task.ID})
	if err != nil {
		return Task{}, err
	}
	task.Updates = updates[task.ID]
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Task, error) {
	query, args := filterQuery("SELECT "+taskColumns, tenantID, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	return s.queryTasks(ctx, query, args...)
}

func (s *Store) CountTasks(ctx context.Context, tenantID string, filter Filter) (int, error) {
	query, args := filterQuery("SELECT COUNT(1)", tenantID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) SaveState(ctx context.Context, task Task) error {
	return saveState(ctx, s.DB, task)
}

func (s *Store) SaveUpdate(ctx context.Context, task Task, update ProgressUpdate) (ProgressUpdate, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return ProgressUpdate{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	attachments := update.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	err = tx.QueryRow(ctx, `
    INSERT INTO task_updates (task_id, author_id, percentage, comment, attachments)
    VALUES ($1,NULLIF($2,'')::uuid,$3,NULLIF($4,''),$5)
    RETURNING id, created_at
  `, task.ID, update.AuthorID, update.Percentage, update.Comment, attachments).Scan(&update.ID, &update.CreatedAt)
	if err != nil {
		return ProgressUpdate{}, err
	}
	if err := saveState(ctx, tx, task); err != nil {
		return ProgressUpdate{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ProgressUpdate{}, err
	}
	update.TaskID = task.ID
	return update, nil
}

func (s *Store) DeleteTask(ctx context.Context, tenantID, taskID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM tasks WHERE tenant_id = $1 AND id = $2", tenantID, taskID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// TasksInWindow returns an employee's tasks created or completed inside the
// window, with their progress updates.
func (s *Store) TasksInWindow(ctx context.Context, tenantID, employeeID string, window scoring.Window) ([]Task, error) {
	return s.queryTasks(ctx, `
    SELECT `+taskColumns+`
    FROM tasks
    WHERE tenant_id = $1 AND employee_id = $2
      AND ((created_at >= $3 AND created_at < $4) OR (completed_at >= $3 AND completed_at < $4))
    ORDER BY created_at, id
  `, tenantID, employeeID, window.Start, window.End)
}

func (s *Store) CountByStatus(ctx context.Context, tenantID string, from, to time.Time) (map[scoring.Status]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1)
    FROM tasks
    WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
    GROUP BY status
  `, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[scoring.Status]int{}
	for rows.Next() {
		var status scoring.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, task)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(out))
	for _, t := range out {
		ids = append(ids, t.ID)
	}
	updates, err := s.updatesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Updates = updates[out[i].ID]
	}
	return out, nil
}

func (s *Store) updatesFor(ctx context.Context, taskIDs []string) (map[string][]ProgressUpdate, error) {
	out := map[string][]ProgressUpdate{}
	if len(taskIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, task_id, COALESCE(author_id::text, ''), percentage, COALESCE(comment, ''), attachments, created_at
    FROM task_updates
    WHERE task_id = ANY($1::uuid[])
    ORDER BY created_at, id
  `, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u ProgressUpdate
		if err := rows.Scan(&u.ID, &u.TaskID, &u.AuthorID, &u.Percentage, &u.Comment, &u.Attachments, &u.CreatedAt); err != nil {
			return nil, err
		}
		out[u.TaskID] = append(out[u.TaskID], u)
	}
	return out, rows.Err()
}

func saveState(ctx context.Context, db execer, task Task) error {
	tag, err := db.Exec(ctx, `
    UPDATE tasks
    SET status = $3, started_at = $4, completed_at = $5, progress = $6, progress_rating = $7, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
  `, task.TenantID, task.ID, task.Status, task.StartedAt, task.CompletedAt, task.Progress, task.ProgressRating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func filterQuery(prefix, tenantID string, filter Filter) (string, []any) {
	query := prefix + " FROM tasks WHERE tenant_id = $1"
	args := []any{tenantID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	return query, args
}
