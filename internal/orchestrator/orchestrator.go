// Package orchestrator executes plans step by step.
//
// A run walks the plan's tool sequence through a bounded retry ladder:
// up to MaxConstrainedAttempts with the plan's own sequence, then exactly
// one escalated attempt with the canonical sequence for the intent, then
// termination. Status events are emitted around every tool call so callers
// can surface progress without polling.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pagewright/internal/config"
	"pagewright/internal/guard"
	"pagewright/internal/status"
	"pagewright/internal/tools"
	"pagewright/internal/types"
)

// =============================================================================
// RESULT
// =============================================================================

// RunResult summarizes one orchestration run.
type RunResult struct {
	// Intent is the plan's classified intent.
	Intent types.IntentType `json:"intent"`

	// Completed is true when an attempt executed its whole sequence.
	Completed bool `json:"completed"`

	// Escalated is true when the run needed the escalated attempt.
	Escalated bool `json:"escalated"`

	// CoolingDown is true when the failure breaker blocked the run.
	CoolingDown bool `json:"coolingDown"`

	// ClarifyAsked is true when the plan asked a question instead of running.
	ClarifyAsked bool `json:"clarifyAsked"`

	// Records holds every tool call made, in execution order.
	Records []types.ToolCallRecord `json:"records,omitempty"`

	// FinalState is the retry-ladder position when the run ended.
	FinalState AttemptState `json:"finalState"`

	// Message is a human-readable summary: the clarifying question, the
	// cooldown notice, or the completion or failure description.
	Message string `json:"message"`

	// Duration is the wall time of the whole run.
	Duration time.Duration `json:"duration"`
}

// Stats is a point-in-time snapshot of orchestrator counters.
type Stats struct {
	TotalRuns      int64
	CompletedRuns  int64
	EscalatedRuns  int64
	CooldownBlocks int64
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator drives plan execution against a tool runner.
type Orchestrator struct {
	runner   tools.Runner
	breaker  *guard.Breaker
	notifier status.Notifier
	cfg      *config.Config
	logger   *zap.Logger

	// sleep pauses between step retries. Replaceable in tests.
	sleep func(time.Duration)

	totalRuns      int64
	completedRuns  int64
	escalatedRuns  int64
	cooldownBlocks int64
}

// New creates an orchestrator. A nil runner gets the dry-run echo registry,
// a nil breaker gets a default breaker, and a nil notifier is a no-op.
func New(runner tools.Runner, breaker *guard.Breaker, notifier status.Notifier, cfg *config.Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if runner == nil {
		runner = tools.NewEchoRegistry(logger)
	}
	if breaker == nil {
		breaker = guard.NewBreaker(logger)
	}
	if notifier == nil {
		notifier = status.NopNotifier{}
	}
	return &Orchestrator{
		runner:   runner,
		breaker:  breaker,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Run executes one plan and returns the full transcript.
//
// Clarify-first plans and cooldown-blocked mutating plans short-circuit with
// zero tool calls. Empty sequences complete trivially. Everything else walks
// the retry ladder until an attempt succeeds or the ladder terminates.
func (o *Orchestrator) Run(ctx context.Context, req types.Request, plan types.Plan) RunResult {
	atomic.AddInt64(&o.totalRuns, 1)
	start := time.Now()

	res := RunResult{
		Intent:     plan.Intent,
		FinalState: AttemptState{Phase: PhaseTerminated},
	}

	if plan.ClarifyFirst {
		res.ClarifyAsked = true
		res.Message = plan.ClarifyQuestion
		o.notifier.Notify("clarify_needed", plan.ClarifyQuestion, map[string]any{
			"requestId": req.ID,
			"intent":    plan.Intent.String(),
		})
		return o.finishRun(&res, start)
	}

	if plan.Intent.Mutating() && o.breaker.InCooldown() {
		atomic.AddInt64(&o.cooldownBlocks, 1)
		remaining := o.breaker.Remaining().Round(time.Second)
		res.CoolingDown = true
		res.Message = fmt.Sprintf("mutating requests are paused for another %s after repeated failures", remaining)
		o.logger.Warn("Run blocked by cooldown",
			zap.String("intent", plan.Intent.String()),
			zap.Duration("remaining", remaining))
		o.notifier.Notify("run_blocked", res.Message, map[string]any{
			"requestId": req.ID,
			"intent":    plan.Intent.String(),
			"remaining": remaining.String(),
		})
		return o.finishRun(&res, start)
	}

	if len(plan.ToolSequence) == 0 {
		// CONVERSATION plans carry no tools; the reply happens upstream.
		res.Completed = true
		res.Message = "no tool calls needed"
		return o.finishRun(&res, start)
	}

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.GetRunTimeout())
	defer cancel()

	o.execute(runCtx, req, plan, &res)

	o.breaker.RecordOutcome(plan.Intent, res.Completed)

	return o.finishRun(&res, start)
}

// Stats returns a snapshot of run counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		TotalRuns:      atomic.LoadInt64(&o.totalRuns),
		CompletedRuns:  atomic.LoadInt64(&o.completedRuns),
		EscalatedRuns:  atomic.LoadInt64(&o.escalatedRuns),
		CooldownBlocks: atomic.LoadInt64(&o.cooldownBlocks),
	}
}

// =============================================================================
// RETRY LADDER
// =============================================================================

// execute walks the retry ladder until an attempt succeeds, the ladder
// terminates, or the run context expires.
func (o *Orchestrator) execute(ctx context.Context, req types.Request, plan types.Plan, res *RunResult) {
	state := initialState()
	iteration := 0
	var lastErr error

	for !state.Terminal() {
		sequence := plan.ToolSequence
		if state.Phase == PhaseEscalated {
			sequence = types.CanonicalSequence(plan.Intent)
			res.Escalated = true
			o.notifier.Notify("attempt_escalated",
				fmt.Sprintf("retrying %s with the canonical sequence", plan.Intent), map[string]any{
					"requestId": req.ID,
					"intent":    plan.Intent.String(),
					"sequence":  toolNames(sequence),
				})
			o.logger.Info("Escalating to canonical sequence",
				zap.String("intent", plan.Intent.String()),
				zap.Strings("sequence", toolNames(sequence)))
		}

		err := o.runAttempt(ctx, plan, sequence, state, &iteration, &res.Records)
		if err == nil {
			res.Completed = true
			res.FinalState = state
			res.Message = fmt.Sprintf("completed %d tool calls", len(res.Records))
			return
		}
		lastErr = err

		if ctx.Err() != nil {
			res.FinalState = state
			res.Message = fmt.Sprintf("run aborted: %v", ctx.Err())
			o.logger.Warn("Run aborted by deadline",
				zap.String("intent", plan.Intent.String()),
				zap.Int("toolCalls", len(res.Records)))
			return
		}

		o.logger.Warn("Attempt failed",
			zap.String("phase", state.Phase.String()),
			zap.Int("attempt", state.Attempt),
			zap.Error(err))
		state = state.Next(o.cfg.Orchestrator.MaxConstrainedAttempts)
	}

	res.FinalState = state
	res.Message = fmt.Sprintf("gave up after escalated attempt: %v", lastErr)
}

// runAttempt executes one pass over a tool sequence, appending a record per
// call. It stops at the first step whose retries are exhausted.
func (o *Orchestrator) runAttempt(ctx context.Context, plan types.Plan, sequence []types.ToolName, state AttemptState, iteration *int, records *[]types.ToolCallRecord) error {
	for _, tool := range sequence {
		*iteration++
		args := plan.HintFor(tool)

		o.notifier.Notify("tool_start", fmt.Sprintf("running %s", tool), map[string]any{
			"tool":      string(tool),
			"iteration": *iteration,
			"attempt":   state.Attempt,
			"phase":     state.Phase.String(),
		})

		stepStart := time.Now()
		result, err := o.runStep(ctx, tool, args)
		elapsed := time.Since(stepStart)

		rec := types.ToolCallRecord{
			Tool:      tool,
			Args:      args,
			Duration:  elapsed,
			Iteration: *iteration,
			Time:      stepStart,
		}
		if err != nil {
			rec.Err = err.Error()
			*records = append(*records, rec)
			o.notifier.Notify("tool_failed", fmt.Sprintf("%s failed: %v", tool, err), map[string]any{
				"tool":      string(tool),
				"iteration": *iteration,
				"phase":     state.Phase.String(),
				"error":     err.Error(),
			})
			return err
		}

		rec.Result = result
		*records = append(*records, rec)
		o.notifier.Notify("tool_done", fmt.Sprintf("%s done", tool), map[string]any{
			"tool":      string(tool),
			"iteration": *iteration,
			"phase":     state.Phase.String(),
			"duration":  elapsed.String(),
		})
	}
	return nil
}

// runStep runs one tool call with the per-step retry budget.
func (o *Orchestrator) runStep(ctx context.Context, tool types.ToolName, args map[string]string) (string, error) {
	retries := o.cfg.Orchestrator.StepRetries
	if retries < 0 {
		retries = 0
	}
	backoff := o.cfg.GetRetryBackoff()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			o.sleep(backoff)
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}

		result, err := o.runner.Run(ctx, tool, args)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", lastErr
		}
	}
	if retries == 0 {
		return "", lastErr
	}
	return "", fmt.Errorf("%s failed after %d attempts: %w", tool, retries+1, lastErr)
}

// finishRun stamps the duration, updates counters, and emits the run_done
// event. Always the last call on every return path.
func (o *Orchestrator) finishRun(res *RunResult, start time.Time) RunResult {
	res.Duration = time.Since(start)
	if res.Completed {
		atomic.AddInt64(&o.completedRuns, 1)
	}
	if res.Escalated {
		atomic.AddInt64(&o.escalatedRuns, 1)
	}

	o.notifier.Notify("run_done", res.Message, map[string]any{
		"intent":    res.Intent.String(),
		"completed": res.Completed,
		"escalated": res.Escalated,
		"toolCalls": len(res.Records),
		"duration":  res.Duration.String(),
	})
	o.logger.Info("Run finished",
		zap.String("intent", res.Intent.String()),
		zap.Bool("completed", res.Completed),
		zap.Bool("escalated", res.Escalated),
		zap.Int("toolCalls", len(res.Records)),
		zap.Duration("duration", res.Duration))

	return *res
}

// toolNames converts a tool sequence for logging.
func toolNames(sequence []types.ToolName) []string {
	out := make([]string, len(sequence))
	for i, t := range sequence {
		out[i] = string(t)
	}
	return out
}
