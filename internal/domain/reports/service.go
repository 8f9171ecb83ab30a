package reports

import (
	"context"
	"fmt"
	"math"
	"time"

	"perfeval/internal/domain/scoring"
)

type TaskCounter interface {
	CountByStatus(ctx context.Context, tenantID string, window scoring.Window) (map[scoring.Status]int, error)
}

type Service struct {
	store StoreAPI
	tasks TaskCounter
}

func NewService(store StoreAPI, tasks TaskCounter) *Service {
	return &Service{store: store, tasks: tasks}
}

// Overview summarises one calendar month: tasks created or completed in it
// and the automated evaluations stored for it.
func (s *Service) Overview(ctx context.Context, tenantID string, month, year int) (Overview, error) {
	if month < 1 || month > 12 {
		return Overview{}, fmt.Errorf("invalid month %d", month)
	}
	counts, err := s.tasks.CountByStatus(ctx, tenantID, scoring.MonthWindow(year, time.Month(month), nil))
	if err != nil {
		return Overview{}, err
	}
	scores, err := s.store.AutomatedScores(ctx, tenantID, month, year)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(month, year, counts, scores), nil
}

func BuildOverview(month, year int, counts map[scoring.Status]int, scores []ScoreRow) Overview {
	out := Overview{
		Month:              month,
		Year:               year,
		TasksByStatus:      map[scoring.Status]int{},
		Evaluations:        len(scores),
		RatingDistribution: map[scoring.Rating]int{},
	}
	for _, status := range []scoring.Status{scoring.StatusPending, scoring.StatusInProgress, scoring.StatusCompleted} {
		out.TasksByStatus[status] = counts[status]
		out.TotalTasks += counts[status]
	}
	for _, r := range scoring.Ratings {
		out.RatingDistribution[r] = 0
	}
	if len(scores) == 0 {
		return out
	}
	total := 0
	for _, row := range scores {
		total += row.Score
		out.RatingDistribution[row.Rating]++
	}
	out.AverageScore = math.Round(float64(total)/float64(len(scores))*10) / 10
	return out
}

// ScoreTrend returns up to months automated scores for an employee, oldest
// first.
func (s *Service) ScoreTrend(ctx context.Context, tenantID, employeeID string, months int) ([]TrendPoint, error) {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	if months > MaxTrendMonths {
		months = MaxTrendMonths
	}
	points, err := s.store.ScoreTrend(ctx, tenantID, employeeID, months)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func (s *Service) JobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) ([]JobRun, int, error) {
	runs, err := s.store.ListJobRuns(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountJobRuns(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (s *Service) JobRun(ctx context.Context, tenantID, runID string) (JobRun, error) {
	return s.store.JobRunByID(ctx, tenantID, runID)
}
