package orchestrator

import (
	"encoding/json"
	"fmt"
)

// AttemptPhase names the execution phases a run moves through.
type AttemptPhase int

const (
	// PhaseConstrained executes the plan's own tool sequence.
	PhaseConstrained AttemptPhase = iota

	// PhaseEscalated executes the canonical sequence for the intent. There is
	// exactly one escalated attempt per run.
	PhaseEscalated

	// PhaseTerminated is the single absorbing phase. No further attempts run.
	PhaseTerminated
)

// String returns a short lowercase name for the phase.
func (p AttemptPhase) String() string {
	switch p {
	case PhaseConstrained:
		return "constrained"
	case PhaseEscalated:
		return "escalated"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("AttemptPhase(%d)", int(p))
	}
}

// MarshalJSON encodes the phase as its lowercase name.
func (p AttemptPhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// AttemptState is a run's position on the retry ladder.
type AttemptState struct {
	// Phase is the current execution phase.
	Phase AttemptPhase `json:"phase"`

	// Attempt is 1-based within the phase. Zero means no attempt ran.
	Attempt int `json:"attempt"`
}

// initialState is where every executing run starts.
func initialState() AttemptState {
	return AttemptState{Phase: PhaseConstrained, Attempt: 1}
}

// Next returns the state after a failed attempt.
//
// Every state reaches PhaseTerminated in a bounded number of steps:
// constrained attempts are capped by maxConstrained, the escalated phase
// allows exactly one attempt, and any out-of-range state advances toward
// termination instead of repeating itself.
func (s AttemptState) Next(maxConstrained int) AttemptState {
	if maxConstrained < 1 {
		maxConstrained = 1
	}

	switch s.Phase {
	case PhaseConstrained:
		if s.Attempt >= 1 && s.Attempt < maxConstrained {
			return AttemptState{Phase: PhaseConstrained, Attempt: s.Attempt + 1}
		}
		return AttemptState{Phase: PhaseEscalated, Attempt: 1}
	case PhaseEscalated:
		return AttemptState{Phase: PhaseTerminated}
	case PhaseTerminated:
		return s
	default:
		return AttemptState{Phase: PhaseEscalated, Attempt: 1}
	}
}

// Terminal reports whether the run can make no further attempts.
func (s AttemptState) Terminal() bool {
	return s.Phase == PhaseTerminated
}
