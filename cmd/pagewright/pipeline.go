package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"pagewright/internal/config"
	"pagewright/internal/guard"
	"pagewright/internal/intent"
	"pagewright/internal/llm"
	"pagewright/internal/orchestrator"
	"pagewright/internal/plan"
	"pagewright/internal/session"
	"pagewright/internal/status"
	"pagewright/internal/tools"
	"pagewright/internal/types"
)

// pipeline bundles the wired components behind the CLI commands.
type pipeline struct {
	cfg        *config.Config
	logger     *zap.Logger
	classifier *intent.Classifier
	router     *plan.Router
	orch       *orchestrator.Orchestrator
	store      *session.Store
	seeder     *session.Seeder
	notifier   *status.AsyncNotifier
	breaker    *guard.Breaker
}

// newPipeline wires the full request path. The model client is optional;
// without one the deterministic paths carry every request. Tool calls run
// against the dry-run echo registry until real handlers are registered.
func newPipeline(cfg *config.Config, logger *zap.Logger, root string) *pipeline {
	client := buildClient(cfg, logger)

	breaker := guard.NewBreakerWithConfig(guard.BreakerConfig{
		FailureThreshold: cfg.Cooldown.FailureThreshold,
		Window:           cfg.GetCooldownWindow(),
	}, logger)

	notifier := status.NewAsyncNotifier(
		status.ZapSink{Logger: logger},
		status.QueueConfig{QueueSize: cfg.Status.QueueSize},
		logger)

	runner := tools.NewEchoRegistry(logger)

	return &pipeline{
		cfg:        cfg,
		logger:     logger,
		classifier: intent.NewClassifier(client, cfg, logger),
		router:     plan.NewRouter(client, cfg, logger),
		orch:       orchestrator.New(runner, breaker, notifier, cfg, logger),
		store:      session.NewStore(cfg, logger),
		seeder:     session.NewSeeder(root, cfg, logger),
		notifier:   notifier,
		breaker:    breaker,
	}
}

// start brings up the status queue and seeds the session channel from the
// workspace. Seeding is best effort; a failure only logs.
func (p *pipeline) start(ctx context.Context, ch string) error {
	if err := p.notifier.Start(); err != nil {
		return err
	}
	p.store.Touch(ch)

	seeded, err := p.seeder.Seed(ctx)
	if err != nil {
		p.logger.Warn("Workspace seeding failed", zap.Error(err))
		return nil
	}
	if len(seeded) > 0 {
		p.store.RecordFiles(ch, seeded...)
		p.logger.Debug("Session seeded", zap.Int("files", len(seeded)))
	}
	return nil
}

// stop drains the status queue.
func (p *pipeline) stop() {
	if err := p.notifier.Stop(); err != nil {
		p.logger.Warn("Status queue drain incomplete", zap.Error(err))
	}
}

// outcome is the full trace for one processed request.
type outcome struct {
	Request        types.Request              `json:"request"`
	Classification types.ClassificationResult `json:"classification"`
	Plan           types.Plan                 `json:"plan"`
	Run            orchestrator.RunResult     `json:"run"`
}

// process runs one request through classify, route, and orchestrate, then
// feeds the outcome back into the session store so follow-ups can resolve
// references against it.
func (p *pipeline) process(ctx context.Context, ch, text string) outcome {
	req := types.NewRequest(text, "cli", ch, p.store.Context(ch))

	cls := p.classifier.Classify(ctx, req.Text)
	pl := p.router.Route(ctx, req.Text, req.Context)
	res := p.orch.Run(ctx, req, pl)

	p.store.RecordIntent(ch, cls.Intent)
	if res.Completed {
		if paths := session.MutatedPaths(res.Records); len(paths) > 0 {
			p.store.RecordFiles(ch, paths...)
		}
	}

	return outcome{Request: req, Classification: cls, Plan: pl, Run: res}
}

// buildClient builds the model client from config, wrapped with the retry
// scheduler. Returns nil when no provider is configured.
func buildClient(cfg *config.Config, logger *zap.Logger) llm.Client {
	client, err := llm.FromConfig(cfg)
	if err != nil {
		if errors.Is(err, llm.ErrNoProvider) {
			logger.Debug("No model provider configured; deterministic paths only")
		} else {
			logger.Warn("Model client unavailable; deterministic paths only", zap.Error(err))
		}
		return nil
	}
	logger.Info("Model client ready", zap.String("provider", cfg.LLM.Provider))
	return llm.NewScheduledClient(client)
}
