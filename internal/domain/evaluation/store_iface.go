package evaluation

import "context"

type StoreAPI interface {
	// UpsertEvaluation replaces any evaluation with the same tenant, employee,
	// period and type.
	UpsertEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error)
	GetEvaluation(ctx context.Context, tenantID, id string) (Evaluation, error)
	ListEvaluations(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Evaluation, error)
	CountEvaluations(ctx context.Context, tenantID string, filter Filter) (int, error)
	DeleteEvaluation(ctx context.Context, tenantID, id string) (bool, error)
	SetReportPath(ctx context.Context, tenantID, id, path string) error
}
