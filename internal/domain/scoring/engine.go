package scoring

import (
	"math"
	"time"
)

// Rating thresholds, evaluated high to low.
const (
	ThresholdExcellent = 90
	ThresholdGood      = 75
	ThresholdAverage   = 60
)

type options struct {
	asOf time.Time
}

type Option func(*options)

// WithAsOf sets the reference time used for open tasks by the quality
// communication metric. Without it the engine never reads the clock.
func WithAsOf(t time.Time) Option {
	return func(o *options) {
		o.asOf = t
	}
}

// ComputeEvaluation scores tasks with the default 40/40/20 profile.
func ComputeEvaluation(tasks []TaskRecord) Result {
	return Compute(tasks, DefaultProfile())
}

// Compute derives every rate from tasks and combines the ones weighted by
// profile into a rounded 0-100 score and its rating bucket.
func Compute(tasks []TaskRecord, profile Profile, opts ...Option) Result {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	details := Details{TotalTasks: len(tasks)}
	var ratingSum float64
	var weightAll, weightCompleted float64
	cadence := profile.cadenceDays()

	for _, task := range tasks {
		w := difficultyWeight(task.Difficulty)
		weightAll += w
		if HasAnyUpdate(task) {
			details.TasksWithUpdates++
		}
		if HasQualityUpdates(task, cadence, o.asOf) {
			details.TasksWithQualityUpdates++
		}
		if task.ProgressRating != nil {
			ratingSum += clamp(*task.ProgressRating, 0, 10) * 10
		}
		if task.Status != StatusCompleted {
			continue
		}
		details.CompletedTasks++
		weightCompleted += w
		if task.Deadline == nil {
			continue
		}
		details.CompletedWithDeadline++
		if task.CompletedAt != nil && !task.CompletedAt.After(*task.Deadline) {
			details.OnTimeTasks++
		}
	}

	details.TaskCompletionRate = rate(details.CompletedTasks, details.TotalTasks)
	details.CommunicationScore = rate(details.TasksWithUpdates, details.TotalTasks)
	details.QualityCommunication = rate(details.TasksWithQualityUpdates, details.TotalTasks)
	if details.CompletedWithDeadline == 0 {
		details.OnTimeDeliveryRate = clamp(profile.EmptyOnTimeDefault, 0, 100)
	} else {
		details.OnTimeDeliveryRate = rate(details.OnTimeTasks, details.CompletedWithDeadline)
	}
	if details.TotalTasks > 0 {
		details.AdminRatingScore = clamp(ratingSum/float64(details.TotalTasks), 0, 100)
	}
	if weightAll > 0 {
		details.EfficiencyScore = clamp(weightCompleted*100/weightAll, 0, 100)
	}

	score := WeightedScore(details, profile.Weights)
	return Result{
		Score:   score,
		Rating:  RatingFor(score),
		Profile: profile.Name,
		Details: details,
	}
}

// WeightedScore sums weight x rate in a fixed metric order and rounds.
func WeightedScore(details Details, weights map[Metric]float64) int {
	total := 0.0
	for _, metric := range metricOrder {
		weight, ok := weights[metric]
		if !ok {
			continue
		}
		total += weight * details.rateOf(metric)
	}
	return int(clamp(math.Round(total), 0, 100))
}

func RatingFor(score int) Rating {
	switch {
	case score >= ThresholdExcellent:
		return RatingExcellent
	case score >= ThresholdGood:
		return RatingGood
	case score >= ThresholdAverage:
		return RatingAverage
	default:
		return RatingNeedsImprovement
	}
}

func (d Details) rateOf(metric Metric) float64 {
	switch metric {
	case MetricCompletion:
		return d.TaskCompletionRate
	case MetricOnTime:
		return d.OnTimeDeliveryRate
	case MetricCommunication:
		return d.CommunicationScore
	case MetricAdminRating:
		return d.AdminRatingScore
	case MetricQualityCommunication:
		return d.QualityCommunication
	case MetricEfficiency:
		return d.EfficiencyScore
	}
	return 0
}

func rate(count, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}
	return clamp(float64(count)*100/float64(denominator), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
