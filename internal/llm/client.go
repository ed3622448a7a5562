// Package llm provides the language-model client abstraction used by the
// classifier and router, with OpenAI-compatible and Gemini providers, an
// environment-driven factory, and a scheduling wrapper that adds rate
// limiting and bounded retries.
package llm

import (
	"context"
	"errors"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteBounded sends a prompt with a system message and a hard output
	// budget. Classification calls use this so a closed-enum label is the
	// whole response.
	CompleteBounded(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// ErrNoProvider is returned by the factory when no provider is configured.
// Callers treat it as "run deterministic paths only", not as a failure.
var ErrNoProvider = errors.New("no LLM provider configured")
