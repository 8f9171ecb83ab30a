package tasks

import (
	"errors"
	"time"

	"perfeval/internal/domain/scoring"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalid           = errors.New("invalid task")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("only the assignee may update this task")
	ErrTaskClosed        = errors.New("task is completed")
)

const (
	MaxRating   = 10.0
	MaxProgress = 100
)

type Task struct {
	ID             string             `json:"id"`
	TenantID       string             `json:"-"`
	EmployeeID     string             `json:"employeeId"`
	AssignedBy     string             `json:"assignedBy,omitempty"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Status         scoring.Status     `json:"status"`
	Difficulty     scoring.Difficulty `json:"difficulty"`
	Deadline       *time.Time         `json:"deadline,omitempty"`
	StartedAt      *time.Time         `json:"startedAt,omitempty"`
	CompletedAt    *time.Time         `json:"completedAt,omitempty"`
	ProgressRating *float64           `json:"progressRating,omitempty"`
	Progress       int                `json:"progress"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
	Updates        []ProgressUpdate   `json:"updates,omitempty"`
}

type ProgressUpdate struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	AuthorID    string    `json:"authorId,omitempty"`
	Percentage  int       `json:"percentage"`
	Comment     string    `json:"comment,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Filter struct {
	EmployeeID string
	Status     scoring.Status
}

type CreateInput struct {
	EmployeeID  string
	Title       string
	Description string
	Difficulty  scoring.Difficulty
	Deadline    *time.Time
}

type UpdateInput struct {
	Percentage  int
	Comment     string
	Attachments []string
}

func ValidStatus(s scoring.Status) bool {
	switch s {
	case scoring.StatusPending, scoring.StatusInProgress, scoring.StatusCompleted:
		return true
	}
	return false
}

func ValidDifficulty(d scoring.Difficulty) bool {
	switch d {
	case scoring.DifficultyLow, scoring.DifficultyMedium, scoring.DifficultyHigh:
		return true
	}
	return false
}
