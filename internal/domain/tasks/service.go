package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"perfeval/internal/domain/notifications"
	"perfeval/internal/domain/scoring"
)

// Notifier delivers in-app notifications about task events.
type Notifier interface {
	Create(ctx context.Context, tenantID, userID, ntype, title, body string) error
	NotifyEmployee(ctx context.Context, tenantID, employeeID, ntype, title, body string) error
}

type Service struct {
	store    StoreAPI
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store StoreAPI, notifier Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, log: log, now: time.Now}
}

// Create assigns a new pending task to an employee.
func (s *Service) Create(ctx context.Context, tenantID, actorID string, in CreateInput) (Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Task{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if strings.TrimSpace(in.EmployeeID) == "" {
		return Task{}, fmt.Errorf("%w: employeeId is required", ErrInvalid)
	}
	if in.Difficulty == "" {
		in.Difficulty = scoring.DifficultyMedium
	}
	if !ValidDifficulty(in.Difficulty) {
		return Task{}, fmt.Errorf("%w: difficulty must be low, medium or high", ErrInvalid)
	}

	task, err := s.store.CreateTask(ctx, Task{
		TenantID:    tenantID,
		EmployeeID:  in.EmployeeID,
		AssignedBy:  actorID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Status:      scoring.StatusPending,
		Difficulty:  in.Difficulty,
		Deadline:    in.Deadline,
	})
	if err != nil {
		return Task{}, err
	}
	s.notifyEmployee(ctx, tenantID, task.EmployeeID, notifications.TypeTaskAssigned, "New task assigned", task.Title)
	return task, nil
}

func (s *Service) Get(ctx context.Context, tenantID, taskID string) (Task, error) {
	return s.store.GetTask(ctx, tenantID, taskID)
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Task, error) {
	return s.store.ListTasks(ctx, tenantID, filter, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID string, filter Filter) (int, error) {
	return s.store.CountTasks(ctx, tenantID, filter)
}

// UpdateStatus applies a status transition. It returns the task before and
// after the change.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, taskID string, to scoring.Status) (Task, Task, error) {
	before, err := s.store.GetTask(ctx, tenantID, taskID)
	if err != nil {
		return Task{}, Task{}, err
	}
	after, changed, err := Transition(before, to, s.now())
	if err != nil || !changed {
		return before, after, err
	}
	if err := s.store.SaveState(ctx, after); err != nil {
		return Task{}, Task{}, err
	}
	if after.Status == scoring.StatusCompleted {
		s.notifyCompleted(ctx, after)
	}
	return before, after, nil
}

// AddProgressUpdate records an update posted by the assignee.
func (s *Service) AddProgressUpdate(ctx context.Context, tenantID, taskID, actorEmployeeID, authorUserID string, in UpdateInput) (Task, ProgressUpdate, error) {
	task, err := s.store.GetTask(ctx, tenantID, taskID)
	if err != nil {
		return Task{}, ProgressUpdate{}, err
	}
	if actorEmployeeID == "" || task.EmployeeID != actorEmployeeID {
		return Task{}, ProgressUpdate{}, ErrForbidden
	}
	next, err := ApplyUpdate(task, in, s.now())
	if err != nil {
		return Task{}, ProgressUpdate{}, err
	}

	update, err := s.store.SaveUpdate(ctx, next, ProgressUpdate{
		AuthorID:    authorUserID,
		Percentage:  in.Percentage,
		Comment:     strings.TrimSpace(in.Comment),
		Attachments: cleanAttachments(in.Attachments),
	})
	if err != nil {
		return Task{}, ProgressUpdate{}, err
	}
	next.Updates = append(next.Updates, update)
	if task.Status != scoring.StatusCompleted && next.Status == scoring.StatusCompleted {
		s.notifyCompleted(ctx, next)
	}
	return next, update, nil
}

// SetRating stores the admin rating on a 0-10 scale.
func (s *Service) SetRating(ctx context.Context, tenantID, taskID string, rating float64) (Task, error) {
	if rating < 0 || rating > MaxRating {
		return Task{}, fmt.Errorf("%w: rating must be between 0 and 10", ErrInvalid)
	}
	task, err := s.store.GetTask(ctx, tenantID, taskID)
	if err != nil {
		return Task{}, err
	}
	task.ProgressRating = &rating
	task.UpdatedAt = s.now()
	if err := s.store.SaveState(ctx, task); err != nil {
		return Task{}, err
	}
	s.notifyEmployee(ctx, tenantID, task.EmployeeID, notifications.TypeTaskRated, "Task rated", fmt.Sprintf("%s was rated %.1f/10", task.Title, rating))
	return task, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, taskID string) error {
	ok, err := s.store.DeleteTask(ctx, tenantID, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// RecordsForPeriod returns the scoring view of an employee's tasks created
// or completed inside window.
func (s *Service) RecordsForPeriod(ctx context.Context, tenantID, employeeID string, window scoring.Window) ([]scoring.TaskRecord, error) {
	list, err := s.store.TasksInWindow(ctx, tenantID, employeeID, window)
	if err != nil {
		return nil, fmt.Errorf("load tasks for %s: %w", employeeID, err)
	}
	return ToRecords(list), nil
}

func (s *Service) CountByStatus(ctx context.Context, tenantID string, window scoring.Window) (map[scoring.Status]int, error) {
	return s.store.CountByStatus(ctx, tenantID, window.Start, window.End)
}

func (s *Service) notifyCompleted(ctx context.Context, task Task) {
	if s.notifier == nil || task.AssignedBy == "" {
		return
	}
	if err := s.notifier.Create(ctx, task.TenantID, task.AssignedBy, notifications.TypeTaskCompleted, "Task completed", task.Title); err != nil {
		s.log.Warn("task completion notification failed", zap.String("taskId", task.ID), zap.Error(err))
	}
}

func (s *Service) notifyEmployee(ctx context.Context, tenantID, employeeID, ntype, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyEmployee(ctx, tenantID, employeeID, ntype, title, body); err != nil {
		s.log.Warn("task notification failed", zap.String("employeeId", employeeID), zap.String("type", ntype), zap.Error(err))
	}
}

func cleanAttachments(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
