package improvement

import (
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// ObjectiveFunction evaluates a set of outcome metrics.
type ObjectiveFunction interface {
	// Evaluate returns the raw objective value (metric value or composite).
	Evaluate(results models.Results) float64

	// Name returns the optimization target this objective serves.
	Name() models.OptimizationType

	// Direction returns whether we're minimizing (true) or maximizing (false).
	Direction() bool // true = minimize, false = maximize
}

// NewObjectiveFunction creates the objective for an optimization target
func NewObjectiveFunction(target models.OptimizationType) (ObjectiveFunction, error) {
	switch target {
	case models.OptimizeCongestion:
		return &MetricObjective{target: target, metric: models.MetricCongestion, minimize: true}, nil
	case models.OptimizeEmissions:
		return &MetricObjective{target: target, metric: models.MetricEmissions, minimize: true}, nil
	case models.OptimizeSatisfaction:
		return &MetricObjective{target: target, metric: models.MetricSatisfaction, minimize: false}, nil
	case models.OptimizeTransitUsage:
		return &MetricObjective{target: target, metric: models.MetricTransitUsage, minimize: false}, nil
	case models.OptimizeBalanced:
		return &BalancedObjective{}, nil
	default:
		return nil, &UnknownObjectiveError{Target: string(target)}
	}
}

// MetricObjective drives a single outcome metric up or down
type MetricObjective struct {
	target   models.OptimizationType
	metric   models.MetricName
	minimize bool
}

func (o *MetricObjective) Name() models.OptimizationType {
	return o.target
}

func (o *MetricObjective) Direction() bool {
	return o.minimize
}

func (o *MetricObjective) Evaluate(results models.Results) float64 {
	return results.Value(o.metric)
}

// BalancedObjective maximizes satisfaction + transit_usage - congestion - emissions
type BalancedObjective struct{}

func (o *BalancedObjective) Name() models.OptimizationType {
	return models.OptimizeBalanced
}

func (o *BalancedObjective) Direction() bool {
	return false // maximize
}

func (o *BalancedObjective) Evaluate(results models.Results) float64 {
	return results.Satisfaction + results.TransitUsage - results.Congestion - results.Emissions
}

// searchScore orients an objective value so that lower is always better
func searchScore(obj ObjectiveFunction, results models.Results) float64 {
	v := obj.Evaluate(results)
	if obj.Direction() {
		return v
	}
	return -v
}

// UnknownObjectiveError indicates an unknown optimization target
type UnknownObjectiveError struct {
	Target string
}

func (e *UnknownObjectiveError) Error() string {
	return "unknown optimization target: " + e.Target
}

func (e *UnknownObjectiveError) Unwrap() error {
	return models.ErrUnknownTarget
}
