package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pagewright/internal/types"
)

// NewEchoRegistry returns a registry with dry-run handlers for every tool in
// the vocabulary. Each handler describes the call it would have made instead
// of touching the workspace, so plans can be exercised end to end before any
// real handlers exist.
func NewEchoRegistry(logger *zap.Logger) *Registry {
	reg := NewRegistry(logger)
	for _, tool := range types.KnownTools() {
		reg.MustRegister(tool, echoHandler(tool))
	}
	return reg
}

// echoHandler builds a handler that reports the call without executing it.
func echoHandler(tool types.ToolName) Handler {
	return func(ctx context.Context, args map[string]string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("dry-run %s: %s", tool, renderArgs(args)), nil
	}
}
