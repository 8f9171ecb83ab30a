package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/scoring"
)

var base = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := base.AddDate(0, 0, days)
	return &t
}

func rating(v float64) *float64 { return &v }

func update(days int) scoring.ProgressUpdate {
	return scoring.ProgressUpdate{Percentage: 50, Comment: "progress", CreatedAt: *at(days)}
}

func completed(deadlineDay, completedDay int) scoring.TaskRecord {
	return scoring.TaskRecord{
		Status:      scoring.StatusCompleted,
		CreatedAt:   base,
		Deadline:    at(deadlineDay),
		CompletedAt: at(completedDay),
	}
}

func TestComputeEvaluation(t *testing.T) {
	tests := map[string]struct {
		tasks     []scoring.TaskRecord
		expScore  int
		expRating scoring.Rating
		check     func(t *testing.T, d scoring.Details)
	}{
		"No tasks scores zero": {
			tasks:     nil,
			expScore:  0,
			expRating: scoring.RatingNeedsImprovement,
			check: func(t *testing.T, d scoring.Details) {
				assert.Zero(t, d.TaskCompletionRate)
				assert.Zero(t, d.OnTimeDeliveryRate)
				assert.Zero(t, d.CommunicationScore)
				assert.Zero(t, d.TotalTasks)
			},
		},
		"Everything completed on time with updates is perfect": {
			tasks: func() []scoring.TaskRecord {
				out := make([]scoring.TaskRecord, 0, 4)
				for i := 0; i < 4; i++ {
					task := completed(5, 3)
					task.ProgressUpdates = []scoring.ProgressUpdate{update(1)}
					out = append(out, task)
				}
				return out
			}(),
			expScore:  100,
			expRating: scoring.RatingExcellent,
			check: func(t *testing.T, d scoring.Details) {
				assert.Equal(t, 100.0, d.TaskCompletionRate)
				assert.Equal(t, 100.0, d.OnTimeDeliveryRate)
				assert.Equal(t, 100.0, d.CommunicationScore)
			},
		},
		"Mixed period lands in needs improvement": {
			tasks: func() []scoring.TaskRecord {
				out := []scoring.TaskRecord{}
				for i := 0; i < 4; i++ {
					out = append(out, completed(5, 4))
				}
				out = append(out, completed(5, 8))
				for i := 0; i < 5; i++ {
					out = append(out, scoring.TaskRecord{Status: scoring.StatusPending, CreatedAt: base})
				}
				for i := 0; i < 3; i++ {
					out[i].ProgressUpdates = []scoring.ProgressUpdate{update(1)}
				}
				return out
			}(),
			expScore:  58,
			expRating: scoring.RatingNeedsImprovement,
			check: func(t *testing.T, d scoring.Details) {
				assert.Equal(t, 50.0, d.TaskCompletionRate)
				assert.Equal(t, 80.0, d.OnTimeDeliveryRate)
				assert.Equal(t, 30.0, d.CommunicationScore)
				assert.Equal(t, 5, d.CompletedWithDeadline)
				assert.Equal(t, 4, d.OnTimeTasks)
			},
		},
		"Deadline-less completions use the on-time default": {
			tasks: []scoring.TaskRecord{
				{Status: scoring.StatusCompleted, CreatedAt: base, CompletedAt: at(2)},
				{Status: scoring.StatusCompleted, CreatedAt: base, CompletedAt: at(3)},
			},
			expScore:  40,
			expRating: scoring.RatingNeedsImprovement,
			check: func(t *testing.T, d scoring.Details) {
				assert.Zero(t, d.CompletedWithDeadline)
				assert.Zero(t, d.OnTimeDeliveryRate)
			},
		},
		"Completed at the deadline instant is on time": {
			tasks:     []scoring.TaskRecord{completed(5, 5)},
			expScore:  80,
			expRating: scoring.RatingGood,
		},
		"Completed without a timestamp is late": {
			tasks: []scoring.TaskRecord{
				{Status: scoring.StatusCompleted, CreatedAt: base, Deadline: at(5)},
			},
			expScore:  40,
			expRating: scoring.RatingNeedsImprovement,
			check: func(t *testing.T, d scoring.Details) {
				assert.Equal(t, 1, d.CompletedWithDeadline)
				assert.Zero(t, d.OnTimeTasks)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			res := scoring.ComputeEvaluation(test.tasks)

			assert.Equal(t, test.expScore, res.Score)
			assert.Equal(t, test.expRating, res.Rating)
			assert.Equal(t, scoring.ProfileStandard, res.Profile)
			if test.check != nil {
				test.check(t, res.Details)
			}
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	tasks := []scoring.TaskRecord{
		completed(5, 4),
		completed(5, 9),
		{Status: scoring.StatusInProgress, CreatedAt: base, ProgressUpdates: []scoring.ProgressUpdate{update(2)}},
		{Status: scoring.StatusPending, CreatedAt: base, ProgressRating: rating(7)},
	}
	profile := scoring.RatedProfile()

	first := scoring.Compute(tasks, profile)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, scoring.Compute(tasks, profile))
	}
}

func TestComputeRatedProfile(t *testing.T) {
	tasks := []scoring.TaskRecord{
		{Status: scoring.StatusCompleted, CreatedAt: base, Deadline: at(5), CompletedAt: at(4), ProgressRating: rating(8),
			ProgressUpdates: []scoring.ProgressUpdate{update(1)}},
		{Status: scoring.StatusPending, CreatedAt: base},
	}

	res := scoring.Compute(tasks, scoring.RatedProfile())

	require.Equal(t, scoring.ProfileRated, res.Profile)
	assert.Equal(t, 40.0, res.Details.AdminRatingScore)
	// 0.3*50 + 0.3*100 + 0.3*50 + 0.1*40
	assert.Equal(t, 64, res.Score)
	assert.Equal(t, scoring.RatingAverage, res.Rating)
}

func TestComputeOnTimeDefault(t *testing.T) {
	profile := scoring.DefaultProfile()
	profile.EmptyOnTimeDefault = 100

	res := scoring.Compute([]scoring.TaskRecord{
		{Status: scoring.StatusCompleted, CreatedAt: base, CompletedAt: at(1)},
	}, profile)

	assert.Equal(t, 100.0, res.Details.OnTimeDeliveryRate)
	assert.Equal(t, 80, res.Score)
}

func TestComputeEfficiency(t *testing.T) {
	tasks := []scoring.TaskRecord{
		{Status: scoring.StatusCompleted, CreatedAt: base, Difficulty: scoring.DifficultyHigh},
		{Status: scoring.StatusPending, CreatedAt: base, Difficulty: scoring.DifficultyLow},
	}
	profile := scoring.Profile{
		Name:    "efficiency-only",
		Weights: map[scoring.Metric]float64{scoring.MetricEfficiency: 1},
	}
	require.NoError(t, profile.Validate())

	res := scoring.Compute(tasks, profile)

	assert.Equal(t, 75.0, res.Details.EfficiencyScore)
	assert.Equal(t, 75, res.Score)
	assert.Equal(t, scoring.RatingGood, res.Rating)
}

func TestRatingFor(t *testing.T) {
	tests := []struct {
		score int
		want  scoring.Rating
	}{
		{100, scoring.RatingExcellent},
		{90, scoring.RatingExcellent},
		{89, scoring.RatingGood},
		{75, scoring.RatingGood},
		{74, scoring.RatingAverage},
		{60, scoring.RatingAverage},
		{59, scoring.RatingNeedsImprovement},
		{0, scoring.RatingNeedsImprovement},
	}
	for _, tc := range tests {
		if got := scoring.RatingFor(tc.score); got != tc.want {
			t.Fatalf("RatingFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestWeightedScoreIgnoresUnweightedMetrics(t *testing.T) {
	d := scoring.Details{TaskCompletionRate: 100, EfficiencyScore: 100}
	score := scoring.WeightedScore(d, map[scoring.Metric]float64{scoring.MetricCompletion: 0.5, scoring.MetricOnTime: 0.5})
	assert.Equal(t, 50, score)
}
