package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"perfeval/internal/domain/core"
	"perfeval/internal/domain/notifications"
	"perfeval/internal/domain/scoring"
	cryptoutil "perfeval/internal/platform/crypto"
)

const DefaultDashboardDays = 30

type Employees interface {
	Get(ctx context.Context, tenantID, employeeID string) (core.Employee, error)
	ListActive(ctx context.Context, tenantID string) ([]core.Employee, error)
}

// TaskSource yields the scoring view of an employee's tasks in a window.
type TaskSource interface {
	RecordsForPeriod(ctx context.Context, tenantID, employeeID string, window scoring.Window) ([]scoring.TaskRecord, error)
}

type Notifier interface {
	NotifyEmployee(ctx context.Context, tenantID, employeeID, ntype, title, body string) error
}

type Recorder interface {
	RecordEvaluation(rating string)
}

type Options struct {
	Notifier      Notifier
	Metrics       Recorder
	Crypto        *cryptoutil.Service
	ReportsDir    string
	DashboardDays int
	Logger        *zap.Logger
}

type Service struct {
	store     StoreAPI
	employees Employees
	tasks     TaskSource
	profiles  *scoring.Registry

	notifier      Notifier
	metrics       Recorder
	crypto        *cryptoutil.Service
	reportsDir    string
	dashboardDays int
	log           *zap.Logger
	now           func() time.Time
}

func NewService(store StoreAPI, employees Employees, tasks TaskSource, profiles *scoring.Registry, opts Options) *Service {
	if profiles == nil {
		profiles = scoring.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReportsDir == "" {
		opts.ReportsDir = filepath.Join("storage", "reports")
	}
	if opts.DashboardDays <= 0 {
		opts.DashboardDays = DefaultDashboardDays
	}
	return &Service{
		store:         store,
		employees:     employees,
		tasks:         tasks,
		profiles:      profiles,
		notifier:      opts.Notifier,
		metrics:       opts.Metrics,
		crypto:        opts.Crypto,
		reportsDir:    opts.ReportsDir,
		dashboardDays: opts.DashboardDays,
		log:           opts.Logger,
		now:           time.Now,
	}
}

// GenerateAutomated scores every active employee of the tenant for one
// calendar month and stores the results. Employees are processed one at a
// time; a failure for one employee is recorded in the result and the run
// moves on.
func (s *Service) GenerateAutomated(ctx context.Context, tenantID, actorID string, month, year int, profileName string) (BatchResult, error) {
	if !validPeriod(month, year) {
		return BatchResult{}, ErrInvalidPeriod
	}
	profile, err := s.profiles.Get(profileName)
	if err != nil {
		return BatchResult{}, err
	}
	employees, err := s.employees.ListActive(ctx, tenantID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list active employees: %w", err)
	}

	window := scoring.MonthWindow(year, time.Month(month), nil)
	asOf := window.End
	if now := s.now(); now.Before(asOf) {
		asOf = now
	}
	result := BatchResult{
		BatchID: ulid.Make().String(),
		Month:   month,
		Year:    year,
		Profile: profile.Name,
	}
	log := s.log.With(zap.String("batchId", result.BatchID), zap.String("tenantId", tenantID))

	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		ev, err := s.evaluateEmployee(ctx, tenantID, actorID, emp, window, asOf, profile, result.BatchID)
		if err != nil {
			log.Warn("evaluation failed", zap.String("employeeId", emp.ID), zap.Error(err))
			result.Failed++
			result.Errors = append(result.Errors, BatchError{EmployeeID: emp.ID, Message: err.Error()})
			continue
		}
		result.Generated++
		s.publish(ctx, ev)
	}

	log.Info("automated evaluations generated",
		zap.Int("month", month), zap.Int("year", year), zap.String("profile", profile.Name),
		zap.Int("generated", result.Generated), zap.Int("failed", result.Failed))
	return result, nil
}

func (s *Service) evaluateEmployee(ctx context.Context, tenantID, actorID string, emp core.Employee, window scoring.Window, asOf time.Time, profile scoring.Profile, batchID string) (Evaluation, error) {
	records, err := s.tasks.RecordsForPeriod(ctx, tenantID, emp.ID, window)
	if err != nil {
		return Evaluation{}, err
	}
	res := scoring.Compute(records, profile, scoring.WithAsOf(asOf))
	ev, err := s.store.UpsertEvaluation(ctx, Evaluation{
		TenantID:    tenantID,
		EmployeeID:  emp.ID,
		Month:       int(window.Start.Month()),
		Year:        window.Start.Year(),
		Type:        TypeAutomated,
		Profile:     res.Profile,
		Score:       res.Score,
		Rating:      res.Rating,
		Details:     res.Details,
		EvaluatedBy: actorID,
		BatchID:     batchID,
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("store evaluation: %w", err)
	}
	if ev.EmployeeName == "" {
		ev.EmployeeName = emp.FullName()
	}
	return ev, nil
}

// CreateManual stores an admin-entered score. The rating comes from the
// same thresholds the engine uses.
func (s *Service) CreateManual(ctx context.Context, tenantID, actorID string, in ManualInput) (Evaluation, error) {
	if !validPeriod(in.Month, in.Year) {
		return Evaluation{}, ErrInvalidPeriod
	}
	if in.Score < 0 || in.Score > 100 {
		return Evaluation{}, ErrInvalidScore
	}
	if strings.TrimSpace(in.EmployeeID) == "" {
		return Evaluation{}, fmt.Errorf("%w: employeeId is required", ErrInvalid)
	}
	if _, err := s.employees.Get(ctx, tenantID, in.EmployeeID); err != nil {
		return Evaluation{}, err
	}
	ev, err := s.store.UpsertEvaluation(ctx, Evaluation{
		TenantID:    tenantID,
		EmployeeID:  in.EmployeeID,
		Month:       in.Month,
		Year:        in.Year,
		Type:        TypeManual,
		Score:       in.Score,
		Rating:      scoring.RatingFor(in.Score),
		Comments:    strings.TrimSpace(in.Comments),
		EvaluatedBy: actorID,
	})
	if err != nil {
		return Evaluation{}, err
	}
	s.publish(ctx, ev)
	return ev, nil
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Evaluation, error) {
	return s.store.ListEvaluations(ctx, tenantID, filter, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID string, filter Filter) (int, error) {
	return s.store.CountEvaluations(ctx, tenantID, filter)
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (Evaluation, error) {
	return s.store.GetEvaluation(ctx, tenantID, id)
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) (Evaluation, error) {
	ev, err := s.store.GetEvaluation(ctx, tenantID, id)
	if err != nil {
		return Evaluation{}, err
	}
	ok, err := s.store.DeleteEvaluation(ctx, tenantID, id)
	if err != nil {
		return Evaluation{}, err
	}
	if !ok {
		return Evaluation{}, ErrNotFound
	}
	if ev.ReportPath != "" {
		if err := os.Remove(ev.ReportPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("remove evaluation report", zap.String("path", ev.ReportPath), zap.Error(err))
		}
	}
	return ev, nil
}

// Dashboard compares an employee's rolling window ending at asOf with the
// window before it, using the default profile.
func (s *Service) Dashboard(ctx context.Context, tenantID, employeeID string, asOf time.Time, days int) (Dashboard, error) {
	if days <= 0 {
		days = s.dashboardDays
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	current := scoring.RollingWindow(asOf, days)
	previous := scoring.PreviousWindow(current)
	records, err := s.tasks.RecordsForPeriod(ctx, tenantID, employeeID, scoring.Window{Start: previous.Start, End: current.End})
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		EmployeeID: employeeID,
		Days:       days,
		Comparison: scoring.Compare(records, asOf, days, s.profiles.Default()),
	}, nil
}

// Preview scores an ad-hoc task list without storing anything.
func (s *Service) Preview(records []scoring.TaskRecord, profileName string, asOf time.Time) (scoring.Result, error) {
	profile, err := s.profiles.Get(profileName)
	if err != nil {
		return scoring.Result{}, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	return scoring.Compute(records, profile, scoring.WithAsOf(asOf)), nil
}

func (s *Service) Profiles() ([]scoring.Profile, string) {
	return s.profiles.List(), s.profiles.DefaultName()
}

// ExportReport returns the PDF of an evaluation, rendering it on first use.
// Rendered files are sealed at rest when an encryption key is configured.
func (s *Service) ExportReport(ctx context.Context, tenantID, id string) ([]byte, Evaluation, error) {
	ev, err := s.store.GetEvaluation(ctx, tenantID, id)
	if err != nil {
		return nil, Evaluation{}, err
	}
	if ev.ReportPath != "" {
		data, err := s.crypto.OpenFile(ev.ReportPath)
		if err == nil {
			return data, ev, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, Evaluation{}, err
		}
	}

	if err := os.MkdirAll(s.reportsDir, 0o755); err != nil {
		return nil, Evaluation{}, err
	}
	path := filepath.Join(s.reportsDir, ev.ID+".pdf")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, Evaluation{}, err
	}
	if err := writeReport(f, ev, s.now()); err != nil {
		f.Close()
		return nil, Evaluation{}, err
	}
	if err := f.Close(); err != nil {
		return nil, Evaluation{}, err
	}

	stored, err := s.crypto.SealFile(path)
	if err != nil {
		return nil, Evaluation{}, err
	}
	if err := s.store.SetReportPath(ctx, tenantID, ev.ID, stored); err != nil {
		return nil, Evaluation{}, err
	}
	ev.ReportPath = stored
	data, err := s.crypto.OpenFile(stored)
	if err != nil {
		return nil, Evaluation{}, err
	}
	return data, ev, nil
}

func (s *Service) publish(ctx context.Context, ev Evaluation) {
	if s.metrics != nil {
		s.metrics.RecordEvaluation(string(ev.Rating))
	}
	if s.notifier == nil {
		return
	}
	title := fmt.Sprintf("Evaluation for %s %d", time.Month(ev.Month), ev.Year)
	body := fmt.Sprintf("Your %s evaluation score is %d (%s).", ev.Type, ev.Score, ev.Rating)
	if err := s.notifier.NotifyEmployee(ctx, ev.TenantID, ev.EmployeeID, notifications.TypeEvaluationPublished, title, body); err != nil {
		s.log.Warn("evaluation notification failed", zap.String("evaluationId", ev.ID), zap.Error(err))
	}
}
