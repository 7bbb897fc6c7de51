package improvement

import "fmt"

const (
	reasonStepBelowMinimum = "step below minimum"
	reasonRoundBudget      = "round budget exhausted"
)

// SearchState is what a convergence strategy sees before each round
type SearchState struct {
	Round    int // rounds completed so far
	Step     float64
	Accepted int
}

// ConvergenceStrategy defines when the coordinate search stops
type ConvergenceStrategy interface {
	// CheckConvergence reports whether the search should stop, and why
	CheckConvergence(state SearchState) (bool, string)
	// Name returns the name of the convergence strategy
	Name() string
}

// StepSizeStrategy stops once the perturbation step shrinks below MinStep
type StepSizeStrategy struct {
	MinStep float64
}

func (s *StepSizeStrategy) Name() string {
	return "step_size"
}

func (s *StepSizeStrategy) CheckConvergence(state SearchState) (bool, string) {
	if state.Step < s.MinStep {
		return true, reasonStepBelowMinimum
	}
	return false, ""
}

// RoundBudgetStrategy stops after a fixed number of rounds
type RoundBudgetStrategy struct {
	Rounds int
}

func (s *RoundBudgetStrategy) Name() string {
	return "round_budget"
}

func (s *RoundBudgetStrategy) CheckConvergence(state SearchState) (bool, string) {
	if state.Round >= s.Rounds {
		return true, reasonRoundBudget
	}
	return false, ""
}

// CombinedStrategy converges as soon as any of its strategies does, in order
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

// NewCombinedStrategy creates a strategy that stops on the first strategy that converges
func NewCombinedStrategy(strategies ...ConvergenceStrategy) *CombinedStrategy {
	return &CombinedStrategy{strategies: strategies}
}

func (s *CombinedStrategy) Name() string {
	return "combined"
}

func (s *CombinedStrategy) CheckConvergence(state SearchState) (bool, string) {
	for _, strategy := range s.strategies {
		if converged, reason := strategy.CheckConvergence(state); converged {
			return true, reason
		}
	}
	return false, ""
}

// DefaultConvergence is the stopping rule for settings: the step falls below
// MinStep or Rounds are spent, whichever comes first.
func DefaultConvergence(settings Settings) ConvergenceStrategy {
	return NewCombinedStrategy(
		&StepSizeStrategy{MinStep: settings.MinStep},
		&RoundBudgetStrategy{Rounds: settings.Rounds},
	)
}

// String is used in debug logs
func (s SearchState) String() string {
	return fmt.Sprintf("round=%d step=%.3f accepted=%d", s.Round, s.Step, s.Accepted)
}
