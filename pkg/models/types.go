package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ParameterName identifies one of the four planning sliders
type ParameterName string

const (
	ParameterRoads           ParameterName = "roads"
	ParameterPopulation      ParameterName = "population"
	ParameterHousing         ParameterName = "housing"
	ParameterPublicTransport ParameterName = "public_transport"
)

// ParameterNames lists the planning dimensions in round-robin search order
var ParameterNames = []ParameterName{
	ParameterRoads,
	ParameterPopulation,
	ParameterHousing,
	ParameterPublicTransport,
}

// MetricName identifies one of the four outcome metrics
type MetricName string

const (
	MetricCongestion   MetricName = "congestion"
	MetricSatisfaction MetricName = "satisfaction"
	MetricEmissions    MetricName = "emissions"
	MetricTransitUsage MetricName = "transit_usage"
)

// MetricNames lists the outcome metrics in reporting order
var MetricNames = []MetricName{
	MetricCongestion,
	MetricSatisfaction,
	MetricEmissions,
	MetricTransitUsage,
}

const (
	// MinValue is the lower bound shared by every parameter and result
	MinValue = 0.0
	// MaxValue is the upper bound shared by every parameter and result
	MaxValue = 100.0
)

// Parameters holds the four planning sliders, each in [0, 100]
type Parameters struct {
	Roads           float64 `json:"roads"`
	Population      float64 `json:"population"`
	Housing         float64 `json:"housing"`
	PublicTransport float64 `json:"public_transport"`
}

// Value returns the slider value for the named dimension
func (p Parameters) Value(name ParameterName) float64 {
	switch name {
	case ParameterRoads:
		return p.Roads
	case ParameterPopulation:
		return p.Population
	case ParameterHousing:
		return p.Housing
	case ParameterPublicTransport:
		return p.PublicTransport
	default:
		return math.NaN()
	}
}

// With returns a copy of p with the named dimension set to v
func (p Parameters) With(name ParameterName, v float64) Parameters {
	switch name {
	case ParameterRoads:
		p.Roads = v
	case ParameterPopulation:
		p.Population = v
	case ParameterHousing:
		p.Housing = v
	case ParameterPublicTransport:
		p.PublicTransport = v
	}
	return p
}

// Validate checks that every slider is a finite number in [0, 100].
// Out-of-range input is reported, never corrected.
func (p Parameters) Validate() error {
	for _, name := range ParameterNames {
		v := p.Value(name)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidParameters, name)
		}
		if v < MinValue || v > MaxValue {
			return fmt.Errorf("%w: %s=%g outside [%g, %g]", ErrInvalidParameters, name, v, MinValue, MaxValue)
		}
	}
	return nil
}

// UnmarshalJSON rejects documents that omit any of the four sliders
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var raw struct {
		Roads           *float64 `json:"roads"`
		Population      *float64 `json:"population"`
		Housing         *float64 `json:"housing"`
		PublicTransport *float64 `json:"public_transport"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	fields := []struct {
		name ParameterName
		v    *float64
	}{
		{ParameterRoads, raw.Roads},
		{ParameterPopulation, raw.Population},
		{ParameterHousing, raw.Housing},
		{ParameterPublicTransport, raw.PublicTransport},
	}
	for _, f := range fields {
		if f.v == nil {
			return fmt.Errorf("%w: missing field %s", ErrInvalidParameters, f.name)
		}
	}
	*p = Parameters{
		Roads:           *raw.Roads,
		Population:      *raw.Population,
		Housing:         *raw.Housing,
		PublicTransport: *raw.PublicTransport,
	}
	return nil
}

// Results holds the four outcome metrics produced by the scoring model
type Results struct {
	Congestion   float64 `json:"congestion"`
	Satisfaction float64 `json:"satisfaction"`
	Emissions    float64 `json:"emissions"`
	TransitUsage float64 `json:"transit_usage"`
}

// Value returns the named metric
func (r Results) Value(name MetricName) float64 {
	switch name {
	case MetricCongestion:
		return r.Congestion
	case MetricSatisfaction:
		return r.Satisfaction
	case MetricEmissions:
		return r.Emissions
	case MetricTransitUsage:
		return r.TransitUsage
	default:
		return math.NaN()
	}
}

// SimulationRun is an immutable record of one scored parameter set.
// ID stays empty until a RunRepository persists the run.
type SimulationRun struct {
	ID         string         `json:"id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Parameters Parameters     `json:"parameters"`
	Results    Results        `json:"results"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewSimulationRun builds an unpersisted run stamped with the current UTC time
func NewSimulationRun(params Parameters, results Results, metadata map[string]any) SimulationRun {
	return SimulationRun{
		CreatedAt:  time.Now().UTC(),
		Parameters: params,
		Results:    results,
		Metadata:   metadata,
	}
}

// WithID returns a copy of the run carrying the repository-assigned id
func (r SimulationRun) WithID(id string) SimulationRun {
	r.ID = id
	return r
}

// OptimizationType names what the optimizer is asked to improve
type OptimizationType string

const (
	OptimizeCongestion   OptimizationType = "congestion"
	OptimizeSatisfaction OptimizationType = "satisfaction"
	OptimizeEmissions    OptimizationType = "emissions"
	OptimizeTransitUsage OptimizationType = "transit_usage"
	OptimizeBalanced     OptimizationType = "balanced"
)

// OptimizationTypes lists every optimization target, balanced last
var OptimizationTypes = []OptimizationType{
	OptimizeCongestion,
	OptimizeSatisfaction,
	OptimizeEmissions,
	OptimizeTransitUsage,
	OptimizeBalanced,
}

// ParseOptimizationType validates a target name
func ParseOptimizationType(s string) (OptimizationType, error) {
	for _, t := range OptimizationTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

// OptimizationResult is the outcome of searching from one baseline run
type OptimizationResult struct {
	BaselineRun           SimulationRun    `json:"baseline_run"`
	OptimalParameters     Parameters       `json:"optimal_parameters"`
	PredictedResults      Results          `json:"predicted_results"`
	OptimizationType      OptimizationType `json:"optimization_type"`
	ImprovementPercentage float64          `json:"improvement_percentage"`
	ConfidenceScore       float64          `json:"confidence_score"`
	Iterations            int              `json:"iterations,omitempty"`
	Evaluations           int              `json:"evaluations,omitempty"`
}

// MetricComparison holds one metric's values across a comparison.
// CompareValues and PercentageDifferences align with ComparisonMetric.ComparedRunIDs.
type MetricComparison struct {
	BaselineValue         float64   `json:"baseline_value"`
	ComparedValues        []float64 `json:"compared_values"`
	PercentageDifferences []float64 `json:"percentage_differences"`
}

// ComparisonSummary carries the synthesized findings
type ComparisonSummary struct {
	KeyFindings []string `json:"key_findings"`
}

// ComparisonMetric relates a baseline run to one or more compared runs
type ComparisonMetric struct {
	BaselineRunID  string                          `json:"baseline_run_id"`
	ComparedRunIDs []string                        `json:"compared_run_ids"`
	Metrics        map[MetricName]MetricComparison `json:"metrics"`
	Summary        ComparisonSummary               `json:"summary"`
}
