package scoring

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

type Difficulty string

const (
	DifficultyLow    Difficulty = "low"
	DifficultyMedium Difficulty = "medium"
	DifficultyHigh   Difficulty = "high"
)

type Rating string

const (
	RatingExcellent        Rating = "Excellent"
	RatingGood             Rating = "Good"
	RatingAverage          Rating = "Average"
	RatingNeedsImprovement Rating = "Needs Improvement"
)

// Ratings lists every rating bucket from best to worst.
var Ratings = []Rating{RatingExcellent, RatingGood, RatingAverage, RatingNeedsImprovement}

type ProgressUpdate struct {
	Percentage  int       `json:"percentage"`
	Comment     string    `json:"comment"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TaskRecord is the read-only view of one task the engine scores. Callers
// scope the slice to one employee and one period before scoring.
type TaskRecord struct {
	Status          Status           `json:"status"`
	CreatedAt       time.Time        `json:"createdAt"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
	StartedAt       *time.Time       `json:"startedAt,omitempty"`
	Deadline        *time.Time       `json:"deadline,omitempty"`
	Difficulty      Difficulty       `json:"difficulty,omitempty"`
	ProgressUpdates []ProgressUpdate `json:"progressUpdates,omitempty"`
	ProgressRating  *float64         `json:"progressRating,omitempty"`
}

type Details struct {
	TaskCompletionRate   float64 `json:"taskCompletionRate"`
	OnTimeDeliveryRate   float64 `json:"onTimeDeliveryRate"`
	CommunicationScore   float64 `json:"communicationScore"`
	AdminRatingScore     float64 `json:"adminRatingScore"`
	QualityCommunication float64 `json:"qualityCommunicationScore"`
	EfficiencyScore      float64 `json:"efficiencyScore"`

	TotalTasks              int `json:"totalTasks"`
	CompletedTasks          int `json:"completedTasks"`
	CompletedWithDeadline   int `json:"completedWithDeadline"`
	OnTimeTasks             int `json:"onTimeTasks"`
	TasksWithUpdates        int `json:"tasksWithUpdates"`
	TasksWithQualityUpdates int `json:"tasksWithQualityUpdates"`
}

type Result struct {
	Score   int     `json:"score"`
	Rating  Rating  `json:"rating"`
	Profile string  `json:"profile"`
	Details Details `json:"details"`
}
