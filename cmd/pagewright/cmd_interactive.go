package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pagewright/internal/config"
)

// runInteractive reads requests from stdin and processes each through the
// full pipeline. Session context persists across turns, so "give it that
// vibe" after an edit resolves against the file just touched. The config
// file is watched and reloads apply between turns.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	p := newPipeline(cfg, logger, workspaceDir())
	if err := p.start(ctx, channel); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer p.stop()

	// Reloads land in a buffered slot; the loop applies them at the prompt
	// so components never see a half-applied config mid-request.
	reloaded := make(chan *config.Config, 1)
	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		select {
		case reloaded <- next:
		default:
		}
	}, logger)
	if err != nil {
		logger.Debug("Config watch unavailable", zap.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Config watch failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	fmt.Printf("%s %s interactive. Type a request, or \"exit\" to leave.\n", cfg.Name, cfg.Version)

	in := bufio.NewScanner(os.Stdin)
	for {
		select {
		case next := <-reloaded:
			*cfg = *next
			logger.Info("Configuration reloaded")
		default:
		}
		if ctx.Err() != nil {
			break
		}

		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		printOutcome(p.process(ctx, channel, line))
	}

	fmt.Println("bye")
	return in.Err()
}

// printOutcome renders a one-request summary for the interactive loop.
func printOutcome(out outcome) {
	fmt.Printf("[%s %.2f via %s] %s\n",
		out.Classification.Intent,
		out.Plan.Confidence,
		out.Plan.Method,
		out.Plan.Reasoning)

	if out.Run.ClarifyAsked || out.Run.CoolingDown {
		fmt.Println(out.Run.Message)
		return
	}

	for _, rec := range out.Run.Records {
		if rec.Failed() {
			fmt.Printf("  %d. %s failed: %s\n", rec.Iteration, rec.Tool, rec.Err)
		} else {
			fmt.Printf("  %d. %s\n", rec.Iteration, rec.Result)
		}
	}
	fmt.Println(out.Run.Message)
}
