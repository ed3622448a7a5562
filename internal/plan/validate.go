package plan

import (
	"errors"
	"fmt"

	"pagewright/internal/types"
)

// Sentinel validation errors, checkable with errors.Is.
var (
	ErrInvalidIntent     = errors.New("plan intent outside the closed enum")
	ErrUnknownTool       = errors.New("plan references an unknown tool")
	ErrConversationTools = errors.New("conversation plan carries tools")
	ErrIterationBudget   = errors.New("expected iterations below tool count")
	ErrConfidenceRange   = errors.New("confidence outside [0,1]")
	ErrClarifyShape      = errors.New("clarify plan must hold a question and no tools")
)

// ValidatePlan enforces the structural invariants every Plan must satisfy
// before it reaches the orchestrator, regardless of which path built it.
func ValidatePlan(p types.Plan) error {
	if !p.Intent.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidIntent, int(p.Intent))
	}

	if p.Intent == types.IntentConversation && len(p.ToolSequence) > 0 {
		return fmt.Errorf("%w: %d tools", ErrConversationTools, len(p.ToolSequence))
	}

	for _, tool := range p.ToolSequence {
		if !types.IsKnownTool(tool) {
			return fmt.Errorf("%w: %q", ErrUnknownTool, tool)
		}
	}

	if p.ExpectedIterations < 1 || p.ExpectedIterations < len(p.ToolSequence) {
		return fmt.Errorf("%w: %d iterations for %d tools",
			ErrIterationBudget, p.ExpectedIterations, len(p.ToolSequence))
	}

	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: %f", ErrConfidenceRange, p.Confidence)
	}

	if p.ClarifyFirst && (p.ClarifyQuestion == "" || len(p.ToolSequence) > 0) {
		return ErrClarifyShape
	}

	switch p.Method {
	case types.MethodModel, types.MethodFallback, types.MethodPattern:
	default:
		return fmt.Errorf("unknown plan method %q", p.Method)
	}

	return nil
}
