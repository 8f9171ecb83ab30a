package scoring

import "time"

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

type Comparison struct {
	Current        Result `json:"current"`
	Previous       Result `json:"previous"`
	CurrentWindow  Window `json:"currentWindow"`
	PreviousWindow Window `json:"previousWindow"`
	ScoreDelta     int    `json:"scoreDelta"`
	Trend          Trend  `json:"trend"`
}

// Compare scores the rolling window ending at asOf against the window of
// the same length right before it.
func Compare(tasks []TaskRecord, asOf time.Time, days int, profile Profile) Comparison {
	current := RollingWindow(asOf, days)
	previous := PreviousWindow(current)

	cur := Compute(FilterPeriod(tasks, current), profile, WithAsOf(asOf))
	prev := Compute(FilterPeriod(tasks, previous), profile, WithAsOf(previous.End))

	delta := cur.Score - prev.Score
	trend := TrendFlat
	switch {
	case delta > 0:
		trend = TrendUp
	case delta < 0:
		trend = TrendDown
	}
	return Comparison{
		Current:        cur,
		Previous:       prev,
		CurrentWindow:  current,
		PreviousWindow: previous,
		ScoreDelta:     delta,
		Trend:          trend,
	}
}
