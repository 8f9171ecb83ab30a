package notifications

const (
	TypeTaskAssigned        = "task_assigned"
	TypeTaskCompleted       = "task_completed"
	TypeTaskRated           = "task_rated"
	TypeEvaluationPublished = "evaluation_published"
)
