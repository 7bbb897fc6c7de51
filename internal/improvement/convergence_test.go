package improvement

import "testing"

func TestStepSizeStrategy(t *testing.T) {
	s := &StepSizeStrategy{MinStep: 1}
	if converged, _ := s.CheckConvergence(SearchState{Step: 1}); converged {
		t.Fatalf("step equal to minimum must keep searching")
	}
	converged, reason := s.CheckConvergence(SearchState{Step: 0.625})
	if !converged || reason != reasonStepBelowMinimum {
		t.Fatalf("expected step convergence, got %v %q", converged, reason)
	}
}

func TestRoundBudgetStrategy(t *testing.T) {
	s := &RoundBudgetStrategy{Rounds: 20}
	if converged, _ := s.CheckConvergence(SearchState{Round: 19, Step: 10}); converged {
		t.Fatalf("budget not yet spent")
	}
	converged, reason := s.CheckConvergence(SearchState{Round: 20, Step: 10})
	if !converged || reason != reasonRoundBudget {
		t.Fatalf("expected budget convergence, got %v %q", converged, reason)
	}
}

func TestCombinedStrategyOrder(t *testing.T) {
	s := DefaultConvergence(Settings{Rounds: 20, InitialStep: 10, MinStep: 1})

	if converged, _ := s.CheckConvergence(SearchState{Round: 3, Step: 5}); converged {
		t.Fatalf("expected search to continue")
	}
	// both conditions hold: the step rule is reported first
	_, reason := s.CheckConvergence(SearchState{Round: 20, Step: 0.5})
	if reason != reasonStepBelowMinimum {
		t.Fatalf("expected step reason first, got %q", reason)
	}
	_, reason = s.CheckConvergence(SearchState{Round: 20, Step: 5})
	if reason != reasonRoundBudget {
		t.Fatalf("expected budget reason, got %q", reason)
	}
}
