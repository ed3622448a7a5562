// Package tools dispatches planned tool calls to registered handlers.
//
// The orchestrator selects and sequences tools; it never implements them.
// This package is the seam between the two: handlers for the closed
// vocabulary in types.KnownTools are installed here, and plans execute
// through the Runner interface. Deployments register handlers backed by a
// real workspace and repository; the CLI default is the dry-run echo
// registry in echo.go.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pagewright/internal/types"
)

// Handler executes one tool call. Implementations must honor ctx and return
// the tool's output as a single string.
type Handler func(ctx context.Context, args map[string]string) (string, error)

// Runner is the execution seam the orchestrator drives plans through.
type Runner interface {
	Run(ctx context.Context, tool types.ToolName, args map[string]string) (string, error)
}

// requiredArgs lists the argument each tool cannot run without. Tools absent
// from the map accept any argument set.
var requiredArgs = map[types.ToolName][]string{
	types.ToolFileExists:    {"path"},
	types.ToolReadFile:      {"path"},
	types.ToolWriteFile:     {"path"},
	types.ToolEditFile:      {"path"},
	types.ToolSearchFiles:   {"query"},
	types.ToolWebSearch:     {"query"},
	types.ToolCommitChanges: {"message"},
}

// RequiredArgs returns the required argument names for a tool, or nil.
// The slice is freshly allocated.
func RequiredArgs(tool types.ToolName) []string {
	req := requiredArgs[tool]
	if len(req) == 0 {
		return nil
	}
	out := make([]string, len(req))
	copy(out, req)
	return out
}

// ToolStats is a point-in-time snapshot of one tool's handler executions.
type ToolStats struct {
	Executions int64
	Failures   int64
	Total      time.Duration
}

// Registry maps the closed tool vocabulary to handlers and tracks per-tool
// execution counts. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[types.ToolName]Handler
	stats    map[types.ToolName]*ToolStats
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		handlers: make(map[types.ToolName]Handler),
		stats:    make(map[types.ToolName]*ToolStats),
		logger:   logger,
	}
}

// Register installs a handler for a tool. Only names from the closed
// vocabulary are accepted, and each name can be registered once.
func (r *Registry) Register(tool types.ToolName, h Handler) error {
	if !types.IsKnownTool(tool) {
		return fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}
	if h == nil {
		return fmt.Errorf("%w: %s", ErrHandlerNil, tool)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[tool]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, tool)
	}
	r.handlers[tool] = h

	r.logger.Debug("Registered tool handler", zap.String("tool", string(tool)))
	return nil
}

// MustRegister installs a handler and panics on error.
// Use this for static wiring at startup.
func (r *Registry) MustRegister(tool types.ToolName, h Handler) {
	if err := r.Register(tool, h); err != nil {
		panic(fmt.Sprintf("tools: failed to register %s: %v", tool, err))
	}
}

// Has reports whether a handler is installed for the tool.
func (r *Registry) Has(tool types.ToolName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[tool]
	return ok
}

// Names returns the registered tool names in canonical vocabulary order.
func (r *Registry) Names() []types.ToolName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.ToolName, 0, len(r.handlers))
	for _, t := range types.KnownTools() {
		if _, ok := r.handlers[t]; ok {
			names = append(names, t)
		}
	}
	return names
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Run dispatches one tool call to its handler.
//
// A missing required argument on a read-only tool yields a structured result
// string with a nil error; the gap shows up in the transcript without
// counting as a failure. The same gap on a mutating tool is an error.
func (r *Registry) Run(ctx context.Context, tool types.ToolName, args map[string]string) (string, error) {
	if !types.IsKnownTool(tool) {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}

	r.mu.RLock()
	h, ok := r.handlers[tool]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, tool)
	}

	if missing := firstMissingArg(tool, args); missing != "" {
		if tool.Mutating() {
			return "", fmt.Errorf("%w: %s needs %q", ErrMissingRequiredArg, tool, missing)
		}
		return fmt.Sprintf("error: %s requires argument %q (got %s)", tool, missing, renderArgs(args)), nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	result, err := h(ctx, args)
	elapsed := time.Since(start)

	r.record(tool, elapsed, err != nil)

	if err != nil {
		r.logger.Debug("Tool call failed",
			zap.String("tool", string(tool)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}

	r.logger.Debug("Tool call completed",
		zap.String("tool", string(tool)),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// record updates the execution counters for one handler call.
func (r *Registry) record(tool types.ToolName, elapsed time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stats[tool]
	if !ok {
		st = &ToolStats{}
		r.stats[tool] = st
	}
	st.Executions++
	st.Total += elapsed
	if failed {
		st.Failures++
	}
}

// Stats returns a snapshot of per-tool execution counters.
func (r *Registry) Stats() map[types.ToolName]ToolStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[types.ToolName]ToolStats, len(r.stats))
	for t, st := range r.stats {
		out[t] = *st
	}
	return out
}

// firstMissingArg returns the first required argument absent or blank in
// args, or "" when the call is complete.
func firstMissingArg(tool types.ToolName, args map[string]string) string {
	for _, req := range requiredArgs[tool] {
		if strings.TrimSpace(args[req]) == "" {
			return req
		}
	}
	return ""
}

// renderArgs formats an argument map as "k=v" pairs in key order.
func renderArgs(args map[string]string) string {
	if len(args) == 0 {
		return "no arguments"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, args[k]))
	}
	return strings.Join(parts, " ")
}

// Compile-time interface check.
var _ Runner = (*Registry)(nil)
