package orchestrator

import (
	"context"
	"errors"
	"sync"

	"pagewright/internal/types"
)

var errToolBoom = errors.New("tool exploded")

type runnerCall struct {
	tool types.ToolName
	args map[string]string
}

// scriptedRunner fails its first failFirst calls and succeeds afterward.
// With block set it parks until the context is done.
type scriptedRunner struct {
	mu        sync.Mutex
	failFirst int
	err       error
	block     bool
	calls     []runnerCall
}

func (r *scriptedRunner) Run(ctx context.Context, tool types.ToolName, args map[string]string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, runnerCall{tool: tool, args: args})
	n := len(r.calls)
	r.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n <= r.failFirst {
		if r.err != nil {
			return "", r.err
		}
		return "", errToolBoom
	}
	return "ok " + string(tool), nil
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *scriptedRunner) callAt(i int) runnerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

type notifyRecord struct {
	category string
	message  string
	data     map[string]any
}

// recordingNotifier captures events synchronously, in order.
type recordingNotifier struct {
	mu      sync.Mutex
	records []notifyRecord
}

func (n *recordingNotifier) Notify(category, message string, data map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, notifyRecord{category: category, message: message, data: data})
}

func (n *recordingNotifier) categories() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.records))
	for i, rec := range n.records {
		out[i] = rec.category
	}
	return out
}
