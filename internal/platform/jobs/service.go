package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	JobMonthlyEvaluations  = "monthly_evaluations"
	JobGenerateEvaluations = "generate_evaluations"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// TenantFunc runs one job for one tenant and returns details stored with
// the job run.
type TenantFunc func(ctx context.Context, tenantID string) (any, error)

type Recorder interface {
	RecordJob(jobType, status string)
}

type Service struct {
	store   StoreAPI
	log     *zap.Logger
	metrics Recorder
	queue   chan job

	mu        sync.Mutex
	schedules []schedule
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

type schedule struct {
	jobType  string
	interval time.Duration
	run      TenantFunc
}

func New(store StoreAPI, log *zap.Logger, metrics Recorder) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		log:     log,
		metrics: metrics,
		queue:   make(chan job, 128),
	}
}

// Schedule runs fn for every tenant each interval once Run is called. A
// non-positive interval disables the schedule.
func (s *Service) Schedule(jobType string, interval time.Duration, fn TenantFunc) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	s.schedules = append(s.schedules, schedule{jobType: jobType, interval: interval, run: fn})
	s.mu.Unlock()
}

// Run drives the worker and every registered schedule until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	schedules := append([]schedule(nil), s.schedules...)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sc := range schedules {
		wg.Add(1)
		go func(sc schedule) {
			defer wg.Done()
			s.scheduleLoop(ctx, sc)
		}(sc)
	}
	s.worker(ctx)
	wg.Wait()
	return ctx.Err()
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
		return true
	default:
		s.log.Warn("job queue full", zap.String("jobType", jobType), zap.String("tenantId", tenantID))
		return false
	}
}

// RunNow executes run synchronously with job_runs bookkeeping.
func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.log.Warn("job run failed", zap.String("jobType", j.Type), zap.String("tenantId", j.TenantID), zap.Error(err))
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.store.StartRun(ctx, j.TenantID, j.Type)
	if err != nil {
		s.log.Warn("job run insert failed", zap.String("jobType", j.Type), zap.Error(err))
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	if s.metrics != nil {
		s.metrics.RecordJob(j.Type, status)
	}

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		s.log.Warn("job details marshal failed", zap.Error(marshalErr))
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.store.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			s.log.Warn("job run update failed", zap.String("runId", runID), zap.Error(updErr))
		}
	}
	return details, err
}

func (s *Service) scheduleLoop(ctx context.Context, sc schedule) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueueTenants(ctx, sc)
		}
	}
}

func (s *Service) enqueueTenants(ctx context.Context, sc schedule) {
	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		s.log.Warn("scheduler tenant lookup failed", zap.String("jobType", sc.jobType), zap.Error(err))
		return
	}
	for _, tenantID := range tenants {
		tenant := tenantID
		s.Enqueue(sc.jobType, tenant, func(ctx context.Context) (any, error) {
			return sc.run(ctx, tenant)
		})
	}
}

// PreviousMonth returns the calendar month before the one containing t.
func PreviousMonth(t time.Time) (month, year int) {
	prev := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, -1, 0)
	return int(prev.Month()), prev.Year()
}
