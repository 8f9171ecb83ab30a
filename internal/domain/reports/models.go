package reports

import (
	"errors"
	"time"

	"perfeval/internal/domain/scoring"
)

var ErrJobRunNotFound = errors.New("job run not found")

const (
	DefaultTrendMonths = 6
	MaxTrendMonths     = 36
)

type ScoreRow struct {
	Score  int
	Rating scoring.Rating
}

type Overview struct {
	Month              int                    `json:"month"`
	Year               int                    `json:"year"`
	TasksByStatus      map[scoring.Status]int `json:"tasksByStatus"`
	TotalTasks         int                    `json:"totalTasks"`
	Evaluations        int                    `json:"evaluations"`
	AverageScore       float64                `json:"averageScore"`
	RatingDistribution map[scoring.Rating]int `json:"ratingDistribution"`
}

type TrendPoint struct {
	Month  int            `json:"month"`
	Year   int            `json:"year"`
	Score  int            `json:"score"`
	Rating scoring.Rating `json:"rating"`
}

type JobRun struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type JobRunFilter struct {
	JobType     string
	Status      string
	StartedFrom *time.Time
	StartedTo   *time.Time
}
