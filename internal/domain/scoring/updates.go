package scoring

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// HasAnyUpdate reports whether the assignee posted at least one progress
// update on the task.
func HasAnyUpdate(task TaskRecord) bool {
	return len(task.ProgressUpdates) > 0
}

// HasQualityUpdates is the stricter communication check: an update carrying
// an attachment, or at least one update per cadence period the task was open.
func HasQualityUpdates(task TaskRecord, cadenceDays int, asOf time.Time) bool {
	if len(task.ProgressUpdates) == 0 {
		return false
	}
	for _, update := range task.ProgressUpdates {
		if len(update.Attachments) > 0 {
			return true
		}
	}
	if cadenceDays <= 0 {
		cadenceDays = DefaultQualityCadenceDays
	}
	return len(task.ProgressUpdates) >= expectedUpdates(task, cadenceDays, asOf)
}

func expectedUpdates(task TaskRecord, cadenceDays int, asOf time.Time) int {
	start := task.CreatedAt
	if task.StartedAt != nil {
		start = *task.StartedAt
	}
	end := task.CreatedAt
	switch {
	case task.CompletedAt != nil:
		end = *task.CompletedAt
	case !asOf.IsZero():
		end = asOf
	}
	days := end.Sub(start).Hours() / 24
	if days < 0 {
		days = 0
	}
	expected := int(math.Ceil(days / float64(cadenceDays)))
	if expected < 1 {
		return 1
	}
	return expected
}

func difficultyWeight(d Difficulty) float64 {
	switch d {
	case DifficultyLow:
		return 1
	case DifficultyHigh:
		return 3
	default:
		return 2
	}
}
