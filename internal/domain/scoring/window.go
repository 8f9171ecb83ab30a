package scoring

import "time"

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MonthWindow covers one calendar month in loc. A nil loc means UTC.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// RollingWindow covers the days leading up to and including asOf.
func RollingWindow(asOf time.Time, days int) Window {
	if days <= 0 {
		days = 1
	}
	end := asOf.Add(time.Nanosecond)
	return Window{Start: end.Add(-time.Duration(days) * day), End: end}
}

// PreviousWindow returns the window of equal length ending where w starts.
func PreviousWindow(w Window) Window {
	length := w.End.Sub(w.Start)
	return Window{Start: w.Start.Add(-length), End: w.Start}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// FilterPeriod keeps tasks created or completed inside w.
func FilterPeriod(tasks []TaskRecord, w Window) []TaskRecord {
	out := make([]TaskRecord, 0, len(tasks))
	for _, task := range tasks {
		if w.Contains(task.CreatedAt) || (task.CompletedAt != nil && w.Contains(*task.CompletedAt)) {
			out = append(out, task)
		}
	}
	return out
}
