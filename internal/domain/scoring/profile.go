package scoring

import (
	"fmt"
	"math"
)

type Metric string

const (
	MetricCompletion           Metric = "completion"
	MetricOnTime               Metric = "onTime"
	MetricCommunication        Metric = "communication"
	MetricAdminRating          Metric = "adminRating"
	MetricQualityCommunication Metric = "qualityCommunication"
	MetricEfficiency           Metric = "efficiency"
)

// metricOrder fixes the summation order of the weighted score.
var metricOrder = []Metric{
	MetricCompletion,
	MetricOnTime,
	MetricCommunication,
	MetricAdminRating,
	MetricQualityCommunication,
	MetricEfficiency,
}

const (
	ProfileStandard = "standard"
	ProfileRated    = "rated"

	DefaultQualityCadenceDays = 7

	weightSumTolerance = 0.001
)

// Profile is one weighted-sum configuration of the engine.
type Profile struct {
	Name    string             `json:"name" yaml:"name"`
	Weights map[Metric]float64 `json:"weights" yaml:"weights"`
	// EmptyOnTimeDefault is the on-time rate used when no completed task
	// in the period carries a deadline.
	EmptyOnTimeDefault float64 `json:"emptyOnTimeDefault" yaml:"emptyOnTimeDefault"`
	QualityCadenceDays int     `json:"qualityCadenceDays,omitempty" yaml:"qualityCadenceDays"`
}

// DefaultProfile weights completion 40%, on-time 40%, communication 20%.
func DefaultProfile() Profile {
	return Profile{
		Name: ProfileStandard,
		Weights: map[Metric]float64{
			MetricCompletion:    0.40,
			MetricOnTime:        0.40,
			MetricCommunication: 0.20,
		},
		QualityCadenceDays: DefaultQualityCadenceDays,
	}
}

// RatedProfile adds the admin rating: 30/30/30/10.
func RatedProfile() Profile {
	return Profile{
		Name: ProfileRated,
		Weights: map[Metric]float64{
			MetricCompletion:    0.30,
			MetricOnTime:        0.30,
			MetricCommunication: 0.30,
			MetricAdminRating:   0.10,
		},
		QualityCadenceDays: DefaultQualityCadenceDays,
	}
}

func BuiltinProfiles() []Profile {
	return []Profile{DefaultProfile(), RatedProfile()}
}

func KnownMetric(m Metric) bool {
	for _, known := range metricOrder {
		if known == m {
			return true
		}
	}
	return false
}

func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if len(p.Weights) == 0 {
		return fmt.Errorf("profile %s: at least one weight is required", p.Name)
	}
	sum := 0.0
	for metric, weight := range p.Weights {
		if !KnownMetric(metric) {
			return fmt.Errorf("profile %s: unknown metric %q", p.Name, metric)
		}
		if weight < 0 || weight > 1 {
			return fmt.Errorf("profile %s: weight for %s must be between 0 and 1", p.Name, metric)
		}
		sum += weight
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("profile %s: weights must sum to 1, got %.3f", p.Name, sum)
	}
	if p.EmptyOnTimeDefault < 0 || p.EmptyOnTimeDefault > 100 {
		return fmt.Errorf("profile %s: emptyOnTimeDefault must be between 0 and 100", p.Name)
	}
	if p.QualityCadenceDays < 0 {
		return fmt.Errorf("profile %s: qualityCadenceDays must not be negative", p.Name)
	}
	return nil
}

func (p Profile) cadenceDays() int {
	if p.QualityCadenceDays <= 0 {
		return DefaultQualityCadenceDays
	}
	return p.QualityCadenceDays
}
