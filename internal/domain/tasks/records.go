package tasks

import "perfeval/internal/domain/scoring"

// ToRecord is the read-only view of a task handed to the scoring engine.
func ToRecord(t Task) scoring.TaskRecord {
	updates := make([]scoring.ProgressUpdate, 0, len(t.Updates))
	for _, u := range t.Updates {
		updates = append(updates, scoring.ProgressUpdate{
			Percentage:  u.Percentage,
			Comment:     u.Comment,
			Attachments: u.Attachments,
			CreatedAt:   u.CreatedAt,
		})
	}
	return scoring.TaskRecord{
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		CompletedAt:     t.CompletedAt,
		StartedAt:       t.StartedAt,
		Deadline:        t.Deadline,
		Difficulty:      t.Difficulty,
		ProgressUpdates: updates,
		ProgressRating:  t.ProgressRating,
	}
}

func ToRecords(tasks []Task) []scoring.TaskRecord {
	out := make([]scoring.TaskRecord, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToRecord(t))
	}
	return out
}
