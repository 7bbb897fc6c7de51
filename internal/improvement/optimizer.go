package improvement

import (
	"context"
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/scoring"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/logger"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

const (
	// MinRounds is the smallest round budget the optimizer accepts
	MinRounds = 20

	// relativeFloor guards relative changes against a zero baseline
	relativeFloor = 1e-6
)

// Settings configures the coordinate search
type Settings struct {
	Rounds      int     // round-robin passes over all four sliders
	InitialStep float64 // first perturbation size
	MinStep     float64 // search stops once the step falls below this
}

// DefaultSettings returns the search settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		Rounds:      50,
		InitialStep: 10,
		MinStep:     1,
	}
}

// ProgressReporter receives the round number and the best objective value so far
type ProgressReporter func(round int, best float64)

// Optimizer implements a bounded local coordinate search over the planning sliders
type Optimizer struct {
	score       scoring.Func
	settings    Settings
	explorer    ParameterExplorer
	convergence ConvergenceStrategy
	progress    ProgressReporter
}

// OptimizationStep represents one accepted move (or the starting point)
type OptimizationStep struct {
	Round      int
	Step       float64
	Value      float64
	Parameters models.Parameters
}

// SearchResult contains the raw outcome of one search
type SearchResult struct {
	Best              models.Parameters
	BestResults       models.Results
	BestValue         float64
	BaselineValue     float64
	BaselineResults   models.Results
	Accepted          int
	Rounds            int
	Evaluations       int
	History           []OptimizationStep
	ConvergenceReason string
}

// NewOptimizer creates a coordinate-search optimizer over the scoring model
func NewOptimizer(settings Settings) *Optimizer {
	defaults := DefaultSettings()
	if settings.Rounds < MinRounds {
		settings.Rounds = MinRounds
	}
	if settings.InitialStep <= 0 {
		settings.InitialStep = defaults.InitialStep
	}
	if settings.MinStep <= 0 {
		settings.MinStep = defaults.MinStep
	}
	return &Optimizer{
		score:       scoring.Score,
		settings:    settings,
		explorer:    NewCoordinateExplorer(),
		convergence: DefaultConvergence(settings),
	}
}

// WithExplorer sets a custom parameter exploration strategy
func (o *Optimizer) WithExplorer(explorer ParameterExplorer) *Optimizer {
	o.explorer = explorer
	return o
}

// WithConvergence replaces the stopping rule. The round budget still applies.
func (o *Optimizer) WithConvergence(strategy ConvergenceStrategy) *Optimizer {
	o.convergence = NewCombinedStrategy(strategy, &RoundBudgetStrategy{Rounds: o.settings.Rounds})
	return o
}

// WithScoreFunc replaces the scoring model
func (o *Optimizer) WithScoreFunc(fn scoring.Func) *Optimizer {
	o.score = fn
	return o
}

// WithProgressReporter registers a callback invoked after every round
func (o *Optimizer) WithProgressReporter(fn ProgressReporter) *Optimizer {
	o.progress = fn
	return o
}

// Settings returns the effective search settings
func (o *Optimizer) Settings() Settings {
	return o.settings
}

// Optimize searches for parameters that improve target relative to baseline.
// Finding no improving move is a valid outcome, not an error.
func (o *Optimizer) Optimize(ctx context.Context, baseline models.SimulationRun, target models.OptimizationType) (models.OptimizationResult, error) {
	objective, err := NewObjectiveFunction(target)
	if err != nil {
		return models.OptimizationResult{}, err
	}

	sr, err := o.Search(ctx, baseline.Parameters, objective)
	if err != nil {
		return models.OptimizationResult{}, err
	}

	improvement := 0.0
	if sr.Accepted > 0 {
		improvement = GetImprovementPercentage(sr.BaselineValue, sr.BestValue, objective.Direction())
	}

	// results are always model output, so report the baseline as scored here
	baseline.Results = sr.BaselineResults

	result := models.OptimizationResult{
		BaselineRun:           baseline,
		OptimalParameters:     sr.Best,
		PredictedResults:      sr.BestResults,
		OptimizationType:      target,
		ImprovementPercentage: improvement,
		ConfidenceScore:       ConfidenceScore(improvement),
		Iterations:            sr.Rounds,
		Evaluations:           sr.Evaluations,
	}

	logger.Debug("optimization finished",
		"run_id", baseline.ID,
		"target", string(target),
		"improvement_pct", improvement,
		"rounds", sr.Rounds,
		"evaluations", sr.Evaluations,
		"reason", sr.ConvergenceReason)

	return result, nil
}

// OptimizeAll runs one search per target, balanced last
func (o *Optimizer) OptimizeAll(ctx context.Context, baseline models.SimulationRun) ([]models.OptimizationResult, error) {
	results := make([]models.OptimizationResult, 0, len(models.OptimizationTypes))
	for _, target := range models.OptimizationTypes {
		res, err := o.Optimize(ctx, baseline, target)
		if err != nil {
			return nil, fmt.Errorf("optimize %s: %w", target, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Search runs the coordinate search from start.
//
// Each round tries every slider in order; a candidate is accepted only when it
// strictly beats the current point. A round without any accepted move halves
// the step. The convergence strategy decides when to stop; by default that is
// when the step drops below MinStep or the round budget is spent.
// Cancellation is observed between rounds only.
func (o *Optimizer) Search(ctx context.Context, start models.Parameters, objective ObjectiveFunction) (*SearchResult, error) {
	if objective == nil {
		return nil, fmt.Errorf("objective function is required")
	}

	startResults, err := o.score(start)
	if err != nil {
		return nil, err
	}

	current := start
	currentResults := startResults
	currentScore := searchScore(objective, startResults)

	sr := &SearchResult{
		BaselineValue:   objective.Evaluate(startResults),
		BaselineResults: startResults,
		Evaluations:     1,
		History: []OptimizationStep{{
			Round:      0,
			Step:       o.settings.InitialStep,
			Value:      objective.Evaluate(startResults),
			Parameters: start,
		}},
	}

	state := SearchState{Step: o.settings.InitialStep}
	for {
		converged, reason := o.convergence.CheckConvergence(state)
		if converged {
			sr.ConvergenceReason = reason
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state.Round++
		round, step := state.Round, state.Step

		improved := false
		for _, dim := range models.ParameterNames {
			for _, candidate := range o.explorer.Neighbors(current, dim, step) {
				res, err := o.score(candidate)
				sr.Evaluations++
				if err != nil {
					return nil, fmt.Errorf("evaluate candidate: %w", err)
				}
				s := searchScore(objective, res)
				if s < currentScore {
					current = candidate
					currentResults = res
					currentScore = s
					improved = true
					sr.Accepted++
					state.Accepted++
					sr.History = append(sr.History, OptimizationStep{
						Round:      round,
						Step:       step,
						Value:      objective.Evaluate(res),
						Parameters: candidate,
					})
					break
				}
			}
		}

		if !improved {
			state.Step /= 2
		}
		if o.progress != nil {
			o.progress(round, objective.Evaluate(currentResults))
		}
	}

	sr.Best = current
	sr.BestResults = currentResults
	sr.BestValue = objective.Evaluate(currentResults)
	sr.Rounds = state.Round
	logger.Debug("search converged", "objective", string(objective.Name()), "state", state.String())
	return sr, nil
}

// GetImprovementPercentage calculates the percentage improvement between two
// objective values, positive when to moved in the desired direction.
func GetImprovementPercentage(from, to float64, minimize bool) float64 {
	diff := to - from
	if minimize {
		diff = -diff
	}
	return diff / math.Max(math.Abs(from), relativeFloor) * 100
}

// ConfidenceScore maps an improvement percentage onto [0, 1].
// It is 0 without improvement and grows with larger improvements.
func ConfidenceScore(improvement float64) float64 {
	if improvement <= 0 {
		return 0
	}
	return math.Min(1.0, 0.5+improvement/200)
}
