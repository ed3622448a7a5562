package orchestrator

import "testing"

func TestLadderWalksConstrainedThenEscalated(t *testing.T) {
	s := initialState()
	if s.Phase != PhaseConstrained || s.Attempt != 1 {
		t.Fatalf("initial state = %+v, want constrained attempt 1", s)
	}

	s = s.Next(2)
	if s.Phase != PhaseConstrained || s.Attempt != 2 {
		t.Fatalf("after first failure = %+v, want constrained attempt 2", s)
	}

	s = s.Next(2)
	if s.Phase != PhaseEscalated || s.Attempt != 1 {
		t.Fatalf("after constrained budget = %+v, want escalated attempt 1", s)
	}

	s = s.Next(2)
	if !s.Terminal() {
		t.Fatalf("after escalated failure = %+v, want terminated", s)
	}

	if next := s.Next(2); !next.Terminal() {
		t.Errorf("terminated state transitioned to %+v", next)
	}
}

func TestLadderSingleConstrainedAttempt(t *testing.T) {
	s := initialState().Next(1)
	if s.Phase != PhaseEscalated {
		t.Errorf("with budget 1 the first failure should escalate, got %+v", s)
	}
}

func TestLadderOutOfRangeStatesAdvance(t *testing.T) {
	tests := []struct {
		name  string
		state AttemptState
		max   int
	}{
		{"zero attempt", AttemptState{Phase: PhaseConstrained, Attempt: 0}, 3},
		{"negative attempt", AttemptState{Phase: PhaseConstrained, Attempt: -5}, 3},
		{"attempt past budget", AttemptState{Phase: PhaseConstrained, Attempt: 99}, 3},
		{"unknown phase", AttemptState{Phase: AttemptPhase(42), Attempt: 1}, 3},
		{"zero budget", AttemptState{Phase: PhaseConstrained, Attempt: 1}, 0},
		{"negative budget", AttemptState{Phase: PhaseConstrained, Attempt: 1}, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := tt.state.Next(tt.max)
			if next == tt.state {
				t.Fatalf("state %+v did not advance", tt.state)
			}
			if next.Phase != PhaseEscalated {
				t.Errorf("state %+v advanced to %+v, want escalated", tt.state, next)
			}
		})
	}
}

// Every reachable and unreachable state must hit termination within a bounded
// number of transitions, whatever the configured budget.
func TestLadderAlwaysTerminates(t *testing.T) {
	phases := []AttemptPhase{PhaseConstrained, PhaseEscalated, PhaseTerminated, AttemptPhase(7)}
	attempts := []int{-3, 0, 1, 2, 5, 100}
	budgets := []int{-1, 0, 1, 2, 5}

	for _, phase := range phases {
		for _, attempt := range attempts {
			for _, budget := range budgets {
				s := AttemptState{Phase: phase, Attempt: attempt}
				bound := budget + 3
				if bound < 3 {
					bound = 3
				}
				steps := 0
				for !s.Terminal() {
					s = s.Next(budget)
					steps++
					if steps > bound {
						t.Fatalf("state {%v %d} with budget %d did not terminate in %d steps",
							phase, attempt, budget, bound)
					}
				}
			}
		}
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase AttemptPhase
		want  string
	}{
		{PhaseConstrained, "constrained"},
		{PhaseEscalated, "escalated"},
		{PhaseTerminated, "terminated"},
		{AttemptPhase(9), "AttemptPhase(9)"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int(tt.phase), got, tt.want)
		}
	}
}
