package tasks

import (
	"fmt"
	"time"

	"perfeval/internal/domain/scoring"
)

// Transition moves task to status at now. It reports whether anything
// changed; moving to the current status is a no-op.
func Transition(task Task, to scoring.Status, now time.Time) (Task, bool, error) {
	if !ValidStatus(to) {
		return task, false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if task.Status == to {
		return task, false, nil
	}
	switch {
	case task.Status == scoring.StatusPending && to == scoring.StatusInProgress:
		task.StartedAt = timePtr(now)
	case to == scoring.StatusCompleted && task.Status != scoring.StatusCompleted:
		if task.StartedAt == nil {
			task.StartedAt = timePtr(now)
		}
		task.CompletedAt = timePtr(now)
		task.Progress = MaxProgress
	case task.Status == scoring.StatusCompleted && to == scoring.StatusInProgress:
		task.CompletedAt = nil
	default:
		return task, false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, task.Status, to)
	}
	task.Status = to
	task.UpdatedAt = now
	return task, true, nil
}

// ApplyUpdate folds a progress update into the task: the first update on a
// pending task starts it and a 100% update completes it.
func ApplyUpdate(task Task, in UpdateInput, now time.Time) (Task, error) {
	if in.Percentage < 0 || in.Percentage > MaxProgress {
		return task, fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalid)
	}
	if task.Status == scoring.StatusCompleted {
		return task, ErrTaskClosed
	}
	var err error
	if task.Status == scoring.StatusPending {
		if task, _, err = Transition(task, scoring.StatusInProgress, now); err != nil {
			return task, err
		}
	}
	task.Progress = in.Percentage
	if in.Percentage == MaxProgress {
		if task, _, err = Transition(task, scoring.StatusCompleted, now); err != nil {
			return task, err
		}
	}
	task.UpdatedAt = now
	return task, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
