package reports

import "context"

type StoreAPI interface {
	AutomatedScores(ctx context.Context, tenantID string, month, year int) ([]ScoreRow, error)
	// ScoreTrend returns the newest automated scores first.
	ScoreTrend(ctx context.Context, tenantID, employeeID string, limit int) ([]TrendPoint, error)
	ListJobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) ([]JobRun, error)
	CountJobRuns(ctx context.Context, tenantID string, filter JobRunFilter) (int, error)
	JobRunByID(ctx context.Context, tenantID, runID string) (JobRun, error)
}
