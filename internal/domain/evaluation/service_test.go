package evaluation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/core"
	"perfeval/internal/domain/scoring"
	cryptoutil "perfeval/internal/platform/crypto"
)

type fakeStore struct {
	byKey map[string]Evaluation
	seq   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byKey: map[string]Evaluation{}}
}

func key(ev Evaluation) string {
	return fmt.Sprintf("%s|%s|%d|%d|%s", ev.TenantID, ev.EmployeeID, ev.Month, ev.Year, ev.Type)
}

func (s *fakeStore) UpsertEvaluation(_ context.Context, ev Evaluation) (Evaluation, error) {
	if existing, ok := s.byKey[key(ev)]; ok {
		ev.ID = existing.ID
	} else {
		s.seq++
		ev.ID = fmt.Sprintf("ev-%d", s.seq)
	}
	s.byKey[key(ev)] = ev
	return ev, nil
}

func (s *fakeStore) find(id string) (string, Evaluation, bool) {
	for k, ev := range s.byKey {
		if ev.ID == id {
			return k, ev, true
		}
	}
	return "", Evaluation{}, false
}

func (s *fakeStore) GetEvaluation(_ context.Context, tenantID, id string) (Evaluation, error) {
	_, ev, ok := s.find(id)
	if !ok || ev.TenantID != tenantID {
		return Evaluation{}, ErrNotFound
	}
	return ev, nil
}

func (s *fakeStore) ListEvaluations(context.Context, string, Filter, int, int) ([]Evaluation, error) {
	out := make([]Evaluation, 0, len(s.byKey))
	for _, ev := range s.byKey {
		out = append(out, ev)
	}
	return out, nil
}

func (s *fakeStore) CountEvaluations(context.Context, string, Filter) (int, error) {
	return len(s.byKey), nil
}

func (s *fakeStore) DeleteEvaluation(_ context.Context, _ string, id string) (bool, error) {
	k, _, ok := s.find(id)
	if ok {
		delete(s.byKey, k)
	}
	return ok, nil
}

func (s *fakeStore) SetReportPath(_ context.Context, _ string, id, path string) error {
	k, ev, ok := s.find(id)
	if !ok {
		return ErrNotFound
	}
	ev.ReportPath = path
	s.byKey[k] = ev
	return nil
}

type fakeEmployees struct {
	list []core.Employee
}

func (f fakeEmployees) Get(_ context.Context, _ string, id string) (core.Employee, error) {
	for _, e := range f.list {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Employee{}, core.ErrNotFound
}

func (f fakeEmployees) ListActive(context.Context, string) ([]core.Employee, error) {
	return f.list, nil
}

type fakeTasks struct {
	records map[string][]scoring.TaskRecord
	fail    map[string]error
	windows []scoring.Window
}

func (f *fakeTasks) RecordsForPeriod(_ context.Context, _ string, employeeID string, window scoring.Window) ([]scoring.TaskRecord, error) {
	f.windows = append(f.windows, window)
	if err := f.fail[employeeID]; err != nil {
		return nil, err
	}
	return scoring.FilterPeriod(f.records[employeeID], window), nil
}

type countingNotifier struct {
	employees []string
}

func (n *countingNotifier) NotifyEmployee(_ context.Context, _, employeeID, _, _, _ string) error {
	n.employees = append(n.employees, employeeID)
	return nil
}

type ratingCounter map[string]int

func (r ratingCounter) RecordEvaluation(rating string) { r[rating]++ }

var aprilNow = time.Date(2025, time.May, 3, 10, 0, 0, 0, time.UTC)

func day(d int) *time.Time {
	t := time.Date(2025, time.April, d, 12, 0, 0, 0, time.UTC)
	return &t
}

// 10 tasks, 6 completed, 5 of them with a deadline and 3 on time, 4 with
// updates: 0.4*60 + 0.4*60 + 0.2*40 = 56.
func sampleRecords() []scoring.TaskRecord {
	var out []scoring.TaskRecord
	for i := 0; i < 10; i++ {
		rec := scoring.TaskRecord{Status: scoring.StatusPending, CreatedAt: *day(1)}
		if i < 6 {
			rec.Status = scoring.StatusCompleted
			rec.CompletedAt = day(10)
		}
		if i < 5 {
			rec.Deadline = day(15)
			if i >= 3 {
				rec.Deadline = day(5)
			}
		}
		if i < 4 {
			rec.ProgressUpdates = []scoring.ProgressUpdate{{Percentage: 50, CreatedAt: *day(3)}}
		}
		out = append(out, rec)
	}
	return out
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	tasks    *fakeTasks
	notifier *countingNotifier
	ratings  ratingCounter
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	store := newFakeStore()
	tasks := &fakeTasks{
		records: map[string][]scoring.TaskRecord{"emp-1": sampleRecords()},
		fail:    map[string]error{},
	}
	notifier := &countingNotifier{}
	ratings := ratingCounter{}
	opts.Notifier = notifier
	opts.Metrics = ratings
	employees := fakeEmployees{list: []core.Employee{
		{ID: "emp-1", FirstName: "Ada", LastName: "Lovelace"},
		{ID: "emp-2", FirstName: "Alan", LastName: "Turing"},
	}}
	svc := NewService(store, employees, tasks, scoring.NewRegistry(), opts)
	svc.now = func() time.Time { return aprilNow }
	return fixture{svc: svc, store: store, tasks: tasks, notifier: notifier, ratings: ratings}
}

func TestGenerateAutomated(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.svc.GenerateAutomated(context.Background(), "t1", "admin", 4, 2025, "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, scoring.ProfileStandard, res.Profile)
	assert.Equal(t, 2, res.Generated)
	assert.Zero(t, res.Failed)

	list, err := f.svc.List(context.Background(), "t1", Filter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, ev := range list {
		assert.Equal(t, TypeAutomated, ev.Type)
		assert.Equal(t, res.BatchID, ev.BatchID)
		switch ev.EmployeeID {
		case "emp-1":
			assert.Equal(t, 56, ev.Score)
			assert.Equal(t, scoring.RatingNeedsImprovement, ev.Rating)
			assert.Equal(t, 10, ev.Details.TotalTasks)
		case "emp-2":
			assert.Zero(t, ev.Score)
		}
	}
	assert.ElementsMatch(t, []string{"emp-1", "emp-2"}, f.notifier.employees)
	assert.Equal(t, 2, f.ratings[string(scoring.RatingNeedsImprovement)])

	for _, w := range f.tasks.windows {
		assert.Equal(t, scoring.MonthWindow(2025, time.April, nil), w)
	}
}

func TestGenerateAutomatedIsIdempotentPerPeriod(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.GenerateAutomated(ctx, "t1", "admin", 4, 2025, "")
	require.NoError(t, err)
	_, err = f.svc.GenerateAutomated(ctx, "t1", "admin", 4, 2025, "")
	require.NoError(t, err)

	total, err := f.svc.Count(ctx, "t1", Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestGenerateAutomatedCollectsFailures(t *testing.T) {
	f := newFixture(t, Options{})
	f.tasks.fail["emp-2"] = errors.New("connection reset")

	res, err := f.svc.GenerateAutomated(context.Background(), "t1", "", 4, 2025, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "emp-2", res.Errors[0].EmployeeID)
	assert.Contains(t, res.Errors[0].Message, "connection reset")
}

func TestGenerateAutomatedRejectsBadInput(t *testing.T) {
	tests := map[string]struct {
		month   int
		year    int
		profile string
		expErr  error
	}{
		"Month zero":      {month: 0, year: 2025, expErr: ErrInvalidPeriod},
		"Month thirteen":  {month: 13, year: 2025, expErr: ErrInvalidPeriod},
		"Year too early":  {month: 1, year: 1999, expErr: ErrInvalidPeriod},
		"Unknown profile": {month: 1, year: 2025, profile: "nope", expErr: scoring.ErrUnknownProfile},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, Options{})
			_, err := f.svc.GenerateAutomated(context.Background(), "t1", "", test.month, test.year, test.profile)
			assert.ErrorIs(t, err, test.expErr)
		})
	}
}

func TestGenerateAutomatedWithRatedProfile(t *testing.T) {
	f := newFixture(t, Options{})
	res, err := f.svc.GenerateAutomated(context.Background(), "t1", "", 4, 2025, scoring.ProfileRated)
	require.NoError(t, err)
	assert.Equal(t, scoring.ProfileRated, res.Profile)

	list, err := f.svc.List(context.Background(), "t1", Filter{}, 10, 0)
	require.NoError(t, err)
	for _, ev := range list {
		assert.Equal(t, scoring.ProfileRated, ev.Profile)
	}
}

func TestCreateManual(t *testing.T) {
	tests := map[string]struct {
		in        ManualInput
		expErr    error
		expRating scoring.Rating
	}{
		"Excellent boundary": {
			in:        ManualInput{EmployeeID: "emp-1", Month: 4, Year: 2025, Score: 90},
			expRating: scoring.RatingExcellent,
		},
		"Average": {
			in:        ManualInput{EmployeeID: "emp-1", Month: 4, Year: 2025, Score: 60},
			expRating: scoring.RatingAverage,
		},
		"Score above range": {
			in:     ManualInput{EmployeeID: "emp-1", Month: 4, Year: 2025, Score: 101},
			expErr: ErrInvalidScore,
		},
		"Negative score": {
			in:     ManualInput{EmployeeID: "emp-1", Month: 4, Year: 2025, Score: -1},
			expErr: ErrInvalidScore,
		},
		"Unknown employee": {
			in:     ManualInput{EmployeeID: "emp-9", Month: 4, Year: 2025, Score: 50},
			expErr: core.ErrNotFound,
		},
		"Bad month": {
			in:     ManualInput{EmployeeID: "emp-1", Month: 0, Year: 2025, Score: 50},
			expErr: ErrInvalidPeriod,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, Options{})
			ev, err := f.svc.CreateManual(context.Background(), "t1", "admin", test.in)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TypeManual, ev.Type)
			assert.Equal(t, test.expRating, ev.Rating)
			assert.Equal(t, "admin", ev.EvaluatedBy)
		})
	}
}

func TestManualAndAutomatedCoexist(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, err := f.svc.CreateManual(ctx, "t1", "admin", ManualInput{EmployeeID: "emp-1", Month: 4, Year: 2025, Score: 80})
	require.NoError(t, err)
	_, err = f.svc.GenerateAutomated(ctx, "t1", "admin", 4, 2025, "")
	require.NoError(t, err)

	total, err := f.svc.Count(ctx, "t1", Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, Options{DashboardDays: 14})
	asOf := time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC)

	dash, err := f.svc.Dashboard(context.Background(), "t1", "emp-1", asOf, 0)
	require.NoError(t, err)
	assert.Equal(t, 14, dash.Days)
	assert.Equal(t, "emp-1", dash.EmployeeID)
	require.Len(t, f.tasks.windows, 1)
	assert.Equal(t, dash.PreviousWindow.Start, f.tasks.windows[0].Start)
	assert.Equal(t, dash.CurrentWindow.End, f.tasks.windows[0].End)
	assert.Equal(t, dash.Current.Score-dash.Previous.Score, dash.ScoreDelta)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, Options{})
	res, err := f.svc.Preview(sampleRecords(), "", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 56, res.Score)

	_, err = f.svc.Preview(nil, "missing", time.Time{})
	assert.ErrorIs(t, err, scoring.ErrUnknownProfile)
}

func TestExportReport(t *testing.T) {
	crypto, err := cryptoutil.New("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	f := newFixture(t, Options{ReportsDir: t.TempDir(), Crypto: crypto})
	ctx := context.Background()

	ev, err := f.svc.CreateManual(ctx, "t1", "admin", ManualInput{EmployeeID: "emp-1", Month: 4, Year: 2025, Score: 77, Comments: "Solid month"})
	require.NoError(t, err)

	data, got, err := f.svc.ExportReport(ctx, "t1", ev.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Equal(t, cryptoutil.EncryptedSuffix, got.ReportPath[len(got.ReportPath)-len(cryptoutil.EncryptedSuffix):])

	raw, err := os.ReadFile(got.ReportPath)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(raw, []byte("%PDF")))

	again, _, err := f.svc.ExportReport(ctx, "t1", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestDeleteRemovesReport(t *testing.T) {
	f := newFixture(t, Options{ReportsDir: t.TempDir()})
	ctx := context.Background()
	ev, err := f.svc.CreateManual(ctx, "t1", "admin", ManualInput{EmployeeID: "emp-1", Month: 4, Year: 2025, Score: 70})
	require.NoError(t, err)
	_, stored, err := f.svc.ExportReport(ctx, "t1", ev.ID)
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, "t1", ev.ID)
	require.NoError(t, err)
	_, err = os.Stat(stored.ReportPath)
	assert.True(t, os.IsNotExist(err))

	_, err = f.svc.Delete(ctx, "t1", ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
