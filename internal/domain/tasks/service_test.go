package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/notifications"
	"perfeval/internal/domain/scoring"
)

type fakeStore struct {
	tasks   map[string]Task
	updates []ProgressUpdate
	saved   int
}

func newFakeStore(list ...Task) *fakeStore {
	s := &fakeStore{tasks: map[string]Task{}}
	for _, t := range list {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *fakeStore) CreateTask(_ context.Context, task Task) (Task, error) {
	task.ID = "task-new"
	s.tasks[task.ID] = task
	return task, nil
}

func (s *fakeStore) GetTask(_ context.Context, tenantID, taskID string) (Task, error) {
	t, ok := s.tasks[taskID]
	if !ok || t.TenantID != tenantID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (s *fakeStore) ListTasks(context.Context, string, Filter, int, int) ([]Task, error) {
	return nil, nil
}

func (s *fakeStore) CountTasks(context.Context, string, Filter) (int, error) {
	return len(s.tasks), nil
}

func (s *fakeStore) SaveState(_ context.Context, task Task) error {
	s.saved++
	s.tasks[task.ID] = task
	return nil
}

func (s *fakeStore) SaveUpdate(_ context.Context, task Task, update ProgressUpdate) (ProgressUpdate, error) {
	update.TaskID = task.ID
	s.updates = append(s.updates, update)
	s.tasks[task.ID] = task
	return update, nil
}

func (s *fakeStore) DeleteTask(_ context.Context, _ string, taskID string) (bool, error) {
	if _, ok := s.tasks[taskID]; !ok {
		return false, nil
	}
	delete(s.tasks, taskID)
	return true, nil
}

func (s *fakeStore) TasksInWindow(_ context.Context, _ string, employeeID string, window scoring.Window) ([]Task, error) {
	var out []Task
	for _, t := range s.tasks {
		if t.EmployeeID == employeeID && window.Contains(t.CreatedAt) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) CountByStatus(context.Context, string, time.Time, time.Time) (map[scoring.Status]int, error) {
	return map[scoring.Status]int{}, nil
}

type sent struct {
	target string
	ntype  string
}

type fakeNotifier struct {
	sent []sent
}

func (n *fakeNotifier) Create(_ context.Context, _, userID, ntype, _, _ string) error {
	n.sent = append(n.sent, sent{target: userID, ntype: ntype})
	return nil
}

func (n *fakeNotifier) NotifyEmployee(_ context.Context, _, employeeID, ntype, _, _ string) error {
	n.sent = append(n.sent, sent{target: employeeID, ntype: ntype})
	return nil
}

var fixedNow = time.Date(2025, time.May, 2, 8, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore) (*Service, *fakeNotifier) {
	n := &fakeNotifier{}
	svc := NewService(store, n, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, n
}

func TestCreateDefaultsAndNotifies(t *testing.T) {
	store := newFakeStore()
	svc, notifier := newTestService(store)

	task, err := svc.Create(context.Background(), "t1", "manager-user", CreateInput{EmployeeID: "emp-1", Title: "  Write report "})
	require.NoError(t, err)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, scoring.DifficultyMedium, task.Difficulty)
	assert.Equal(t, scoring.StatusPending, task.Status)
	assert.Equal(t, "manager-user", task.AssignedBy)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, sent{target: "emp-1", ntype: notifications.TypeTaskAssigned}, notifier.sent[0])
}

func TestCreateValidation(t *testing.T) {
	tests := map[string]struct {
		in CreateInput
	}{
		"Missing title":      {in: CreateInput{EmployeeID: "emp-1"}},
		"Missing assignee":   {in: CreateInput{Title: "x"}},
		"Unknown difficulty": {in: CreateInput{EmployeeID: "emp-1", Title: "x", Difficulty: "extreme"}},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(newFakeStore())
			_, err := svc.Create(context.Background(), "t1", "u", test.in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestUpdateStatusNotifiesAssignerOnCompletion(t *testing.T) {
	store := newFakeStore(Task{ID: "a", TenantID: "t1", EmployeeID: "emp-1", AssignedBy: "mgr", Status: scoring.StatusInProgress})
	svc, notifier := newTestService(store)

	before, after, err := svc.UpdateStatus(context.Background(), "t1", "a", scoring.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, scoring.StatusInProgress, before.Status)
	assert.Equal(t, scoring.StatusCompleted, after.Status)
	assert.Equal(t, fixedNow, *after.CompletedAt)
	assert.Equal(t, 1, store.saved)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, sent{target: "mgr", ntype: notifications.TypeTaskCompleted}, notifier.sent[0])
}

func TestUpdateStatusNoOpDoesNotSave(t *testing.T) {
	store := newFakeStore(Task{ID: "a", TenantID: "t1", Status: scoring.StatusPending})
	svc, _ := newTestService(store)

	_, _, err := svc.UpdateStatus(context.Background(), "t1", "a", scoring.StatusPending)
	require.NoError(t, err)
	assert.Zero(t, store.saved)
}

func TestUpdateStatusWrongTenant(t *testing.T) {
	store := newFakeStore(Task{ID: "a", TenantID: "t1", Status: scoring.StatusPending})
	svc, _ := newTestService(store)

	_, _, err := svc.UpdateStatus(context.Background(), "t2", "a", scoring.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddProgressUpdate(t *testing.T) {
	tests := map[string]struct {
		actor     string
		status    scoring.Status
		in        UpdateInput
		expErr    error
		expStatus scoring.Status
	}{
		"Assignee starts the task": {
			actor:     "emp-1",
			status:    scoring.StatusPending,
			in:        UpdateInput{Percentage: 30, Comment: "started", Attachments: []string{" ", "draft.pdf"}},
			expStatus: scoring.StatusInProgress,
		},
		"Assignee completes the task": {
			actor:     "emp-1",
			status:    scoring.StatusInProgress,
			in:        UpdateInput{Percentage: 100},
			expStatus: scoring.StatusCompleted,
		},
		"Someone else is forbidden": {
			actor:  "emp-2",
			status: scoring.StatusInProgress,
			in:     UpdateInput{Percentage: 10},
			expErr: ErrForbidden,
		},
		"Users without an employee record are forbidden": {
			actor:  "",
			status: scoring.StatusInProgress,
			in:     UpdateInput{Percentage: 10},
			expErr: ErrForbidden,
		},
		"Completed task is closed": {
			actor:  "emp-1",
			status: scoring.StatusCompleted,
			in:     UpdateInput{Percentage: 10},
			expErr: ErrTaskClosed,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore(Task{ID: "a", TenantID: "t1", EmployeeID: "emp-1", AssignedBy: "mgr", Status: test.status})
			svc, _ := newTestService(store)

			task, update, err := svc.AddProgressUpdate(context.Background(), "t1", "a", test.actor, "user-1", test.in)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				assert.Empty(t, store.updates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expStatus, task.Status)
			assert.Equal(t, "a", update.TaskID)
			assert.Equal(t, "user-1", update.AuthorID)
			for _, a := range update.Attachments {
				assert.NotEmpty(t, a)
			}
			assert.Len(t, task.Updates, 1)
		})
	}
}

func TestSetRating(t *testing.T) {
	store := newFakeStore(Task{ID: "a", TenantID: "t1", EmployeeID: "emp-1", Status: scoring.StatusCompleted})
	svc, notifier := newTestService(store)

	_, err := svc.SetRating(context.Background(), "t1", "a", 10.5)
	assert.ErrorIs(t, err, ErrInvalid)

	task, err := svc.SetRating(context.Background(), "t1", "a", 8)
	require.NoError(t, err)
	require.NotNil(t, task.ProgressRating)
	assert.Equal(t, 8.0, *task.ProgressRating)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notifications.TypeTaskRated, notifier.sent[0].ntype)
}

func TestDeleteMissingTask(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	assert.ErrorIs(t, svc.Delete(context.Background(), "t1", "missing"), ErrNotFound)
}

func TestRecordsForPeriod(t *testing.T) {
	inside := fixedNow.AddDate(0, 0, -3)
	outside := fixedNow.AddDate(0, -2, 0)
	store := newFakeStore(
		Task{ID: "a", TenantID: "t1", EmployeeID: "emp-1", Status: scoring.StatusPending, CreatedAt: inside},
		Task{ID: "b", TenantID: "t1", EmployeeID: "emp-1", Status: scoring.StatusPending, CreatedAt: outside},
		Task{ID: "c", TenantID: "t1", EmployeeID: "emp-2", Status: scoring.StatusPending, CreatedAt: inside},
	)
	svc, _ := newTestService(store)

	records, err := svc.RecordsForPeriod(context.Background(), "t1", "emp-1", scoring.MonthWindow(2025, time.April, nil))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, inside, records[0].CreatedAt)
}
