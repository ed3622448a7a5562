package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagewright/internal/config"
	"pagewright/internal/guard"
	"pagewright/internal/status"
	"pagewright/internal/tools"
	"pagewright/internal/types"
)

func newTestOrchestrator(runner tools.Runner, breaker *guard.Breaker, notifier status.Notifier, mutate func(*config.Config)) (*Orchestrator, *[]time.Duration) {
	cfg := config.DefaultConfig()
	cfg.Orchestrator.RetryBackoff = "1ms"
	if mutate != nil {
		mutate(cfg)
	}
	o := New(runner, breaker, notifier, cfg, nil)
	sleeps := &[]time.Duration{}
	o.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return o, sleeps
}

func editPlan() types.Plan {
	return types.Plan{
		Intent:       types.IntentEditExisting,
		ToolSequence: []types.ToolName{types.ToolFileExists, types.ToolReadFile, types.ToolEditFile},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolFileExists: {"path": "pages/about.html"},
			types.ToolReadFile:   {"path": "pages/about.html"},
			types.ToolEditFile:   {"path": "pages/about.html"},
		},
		Confidence:         0.8,
		Reasoning:          "edit request naming a target",
		ExpectedIterations: 3,
		Method:             types.MethodPattern,
	}
}

func testRequest(text string) types.Request {
	return types.NewRequest(text, "tester", "cli", types.SessionContext{})
}

func TestRunCompletesPlan(t *testing.T) {
	runner := &scriptedRunner{}
	notifier := &recordingNotifier{}
	o, _ := newTestOrchestrator(runner, nil, notifier, nil)

	res := o.Run(context.Background(), testRequest("update the about page hours"), editPlan())

	require.True(t, res.Completed)
	assert.False(t, res.Escalated)
	assert.Equal(t, types.IntentEditExisting, res.Intent)
	assert.Equal(t, PhaseConstrained, res.FinalState.Phase)
	assert.Equal(t, "completed 3 tool calls", res.Message)

	require.Len(t, res.Records, 3)
	for i, tool := range editPlan().ToolSequence {
		assert.Equal(t, tool, res.Records[i].Tool)
		assert.Equal(t, i+1, res.Records[i].Iteration)
		assert.False(t, res.Records[i].Failed())
		assert.Equal(t, "ok "+string(tool), res.Records[i].Result)
	}

	// Hints travel to the runner unchanged.
	assert.Equal(t, "pages/about.html", runner.callAt(0).args["path"])

	want := []string{
		"tool_start", "tool_done",
		"tool_start", "tool_done",
		"tool_start", "tool_done",
		"run_done",
	}
	assert.Equal(t, want, notifier.categories())

	stats := o.Stats()
	assert.Equal(t, int64(1), stats.TotalRuns)
	assert.Equal(t, int64(1), stats.CompletedRuns)
	assert.Equal(t, int64(0), stats.EscalatedRuns)
}

func TestRunRetriesFailedStep(t *testing.T) {
	runner := &scriptedRunner{failFirst: 1}
	o, sleeps := newTestOrchestrator(runner, nil, nil, nil)

	res := o.Run(context.Background(), testRequest("update the about page"), editPlan())

	require.True(t, res.Completed)
	assert.Equal(t, 4, runner.callCount(), "one retry plus three successes")
	require.Len(t, *sleeps, 1)
	assert.Equal(t, time.Millisecond, (*sleeps)[0])

	// The retry stays inside its step; the transcript has one record per step.
	require.Len(t, res.Records, 3)
	assert.False(t, res.Records[0].Failed())
}

func TestRunEscalatesToCanonicalSequence(t *testing.T) {
	runner := &scriptedRunner{failFirst: 2}
	notifier := &recordingNotifier{}
	breaker := guard.NewBreaker(nil)
	o, _ := newTestOrchestrator(runner, breaker, notifier, func(cfg *config.Config) {
		cfg.Orchestrator.StepRetries = 0
	})

	plan := types.Plan{
		Intent:       types.IntentCreateNew,
		ToolSequence: []types.ToolName{types.ToolWriteFile},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolWriteFile: {"path": "pages/gallery.html"},
		},
		Confidence:         0.8,
		ExpectedIterations: 1,
		Method:             types.MethodPattern,
	}

	res := o.Run(context.Background(), testRequest("make a gallery page"), plan)

	require.True(t, res.Completed)
	assert.True(t, res.Escalated)
	assert.Equal(t, AttemptState{Phase: PhaseEscalated, Attempt: 1}, res.FinalState)

	// Two constrained failures, then the canonical create sequence.
	require.Len(t, res.Records, 4)
	assert.True(t, res.Records[0].Failed())
	assert.True(t, res.Records[1].Failed())
	assert.Equal(t, types.ToolListFiles, res.Records[2].Tool)
	assert.Equal(t, types.ToolWriteFile, res.Records[3].Tool)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{
		res.Records[0].Iteration, res.Records[1].Iteration,
		res.Records[2].Iteration, res.Records[3].Iteration,
	})

	// Plan hints still apply to the canonical sequence.
	assert.Equal(t, "pages/gallery.html", runner.callAt(3).args["path"])

	escalations := 0
	for _, cat := range notifier.categories() {
		if cat == "attempt_escalated" {
			escalations++
		}
	}
	assert.Equal(t, 1, escalations)

	assert.Equal(t, int64(1), o.Stats().EscalatedRuns)
	assert.Equal(t, 0, breaker.Snapshot().ConsecutiveFailures, "success resets the failure streak")
}

func TestRunExhaustsLadder(t *testing.T) {
	runner := &scriptedRunner{failFirst: 1 << 20}
	breaker := guard.NewBreaker(nil)
	o, _ := newTestOrchestrator(runner, breaker, nil, func(cfg *config.Config) {
		cfg.Orchestrator.StepRetries = 0
	})

	res := o.Run(context.Background(), testRequest("update the about page"), editPlan())

	require.False(t, res.Completed)
	assert.True(t, res.Escalated)
	assert.True(t, res.FinalState.Terminal())
	assert.Contains(t, res.Message, "gave up after escalated attempt")

	// Each attempt stops at its first failing step.
	require.Len(t, res.Records, 3)
	for _, rec := range res.Records {
		assert.True(t, rec.Failed())
		assert.Equal(t, types.ToolFileExists, rec.Tool)
	}

	assert.Equal(t, 1, breaker.Snapshot().ConsecutiveFailures)
	assert.Equal(t, int64(0), o.Stats().CompletedRuns)
}

func TestRunClarifyShortCircuits(t *testing.T) {
	runner := &scriptedRunner{}
	notifier := &recordingNotifier{}
	breaker := guard.NewBreaker(nil)
	o, _ := newTestOrchestrator(runner, breaker, notifier, nil)

	plan := types.Plan{
		Intent:          types.IntentEditExisting,
		Confidence:      0.6,
		ClarifyFirst:    true,
		ClarifyQuestion: "Which file should I update?",
		Method:          types.MethodPattern,
	}

	res := o.Run(context.Background(), testRequest("fix the bug"), plan)

	assert.True(t, res.ClarifyAsked)
	assert.False(t, res.Completed)
	assert.Equal(t, "Which file should I update?", res.Message)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, runner.callCount())
	assert.Equal(t, []string{"clarify_needed", "run_done"}, notifier.categories())
	assert.Equal(t, 0, breaker.Snapshot().ConsecutiveFailures)
}

func TestRunCooldownBlocksMutatingPlan(t *testing.T) {
	runner := &scriptedRunner{}
	breaker := guard.NewBreakerWithConfig(guard.BreakerConfig{FailureThreshold: 1}, nil)
	breaker.RecordOutcome(types.IntentEditExisting, false)
	require.True(t, breaker.InCooldown())

	notifier := &recordingNotifier{}
	o, _ := newTestOrchestrator(runner, breaker, notifier, nil)

	res := o.Run(context.Background(), testRequest("update the about page"), editPlan())

	assert.True(t, res.CoolingDown)
	assert.False(t, res.Completed)
	assert.Contains(t, res.Message, "paused")
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, runner.callCount())
	assert.Equal(t, []string{"run_blocked", "run_done"}, notifier.categories())
	assert.Equal(t, int64(1), o.Stats().CooldownBlocks)
}

func TestRunCooldownIgnoresReadOnlyPlan(t *testing.T) {
	runner := &scriptedRunner{}
	breaker := guard.NewBreakerWithConfig(guard.BreakerConfig{FailureThreshold: 1}, nil)
	breaker.RecordOutcome(types.IntentCommit, false)
	require.True(t, breaker.InCooldown())

	o, _ := newTestOrchestrator(runner, breaker, nil, nil)

	plan := types.Plan{
		Intent:       types.IntentReadOnly,
		ToolSequence: []types.ToolName{types.ToolListFiles},
		Confidence:   0.75,
		Method:       types.MethodPattern,
	}

	res := o.Run(context.Background(), testRequest("list the pages"), plan)

	require.True(t, res.Completed)
	assert.False(t, res.CoolingDown)
	assert.Equal(t, 1, runner.callCount())
}

func TestRunConversationCompletesTrivially(t *testing.T) {
	runner := &scriptedRunner{}
	o, _ := newTestOrchestrator(runner, nil, nil, nil)

	plan := types.Plan{
		Intent:     types.IntentConversation,
		Confidence: 0.6,
		Method:     types.MethodPattern,
	}

	res := o.Run(context.Background(), testRequest("thanks, that looks great"), plan)

	assert.True(t, res.Completed)
	assert.Empty(t, res.Records)
	assert.Equal(t, "no tool calls needed", res.Message)
	assert.Equal(t, 0, runner.callCount())
}

func TestRunAbortsOnDeadline(t *testing.T) {
	runner := &scriptedRunner{block: true}
	breaker := guard.NewBreaker(nil)
	o, _ := newTestOrchestrator(runner, breaker, nil, func(cfg *config.Config) {
		cfg.Orchestrator.RunTimeout = "30ms"
	})

	res := o.Run(context.Background(), testRequest("update the about page"), editPlan())

	require.False(t, res.Completed)
	assert.Contains(t, res.Message, "run aborted")
	assert.Equal(t, PhaseConstrained, res.FinalState.Phase, "abort keeps the in-flight ladder position")

	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].Failed())

	// An aborted mutating run still counts against the breaker.
	assert.Equal(t, 1, breaker.Snapshot().ConsecutiveFailures)
}

func TestRunStatsAccumulate(t *testing.T) {
	runner := &scriptedRunner{}
	o, _ := newTestOrchestrator(runner, nil, nil, nil)

	ctx := context.Background()
	o.Run(ctx, testRequest("update the about page"), editPlan())
	o.Run(ctx, testRequest("thanks"), types.Plan{Intent: types.IntentConversation, Confidence: 0.6, Method: types.MethodPattern})

	stats := o.Stats()
	assert.Equal(t, int64(2), stats.TotalRuns)
	assert.Equal(t, int64(2), stats.CompletedRuns)
}

func TestNewDefaultsCollaborators(t *testing.T) {
	o := New(nil, nil, nil, nil, nil)

	res := o.Run(context.Background(), testRequest("does pages/about.html exist?"), types.Plan{
		Intent:       types.IntentReadOnly,
		ToolSequence: []types.ToolName{types.ToolFileExists},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolFileExists: {"path": "pages/about.html"},
		},
		Confidence: 0.8,
		Method:     types.MethodPattern,
	})

	require.True(t, res.Completed)
	require.Len(t, res.Records, 1)
	assert.Contains(t, res.Records[0].Result, "dry-run file_exists")
}
