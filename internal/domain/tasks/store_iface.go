package tasks

import (
	"context"
	"time"

	"perfeval/internal/domain/scoring"
)

type StoreAPI interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, tenantID, taskID string) (Task, error)
	ListTasks(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Task, error)
	CountTasks(ctx context.Context, tenantID string, filter Filter) (int, error)
	// SaveState persists status, timestamps, progress and rating.
	SaveState(ctx context.Context, task Task) error
	// SaveUpdate stores the update and the task state it produced atomically.
	SaveUpdate(ctx context.Context, task Task, update ProgressUpdate) (ProgressUpdate, error)
	DeleteTask(ctx context.Context, tenantID, taskID string) (bool, error)
	TasksInWindow(ctx context.Context, tenantID, employeeID string, window scoring.Window) ([]Task, error)
	CountByStatus(ctx context.Context, tenantID string, from, to time.Time) (map[scoring.Status]int, error)
}
