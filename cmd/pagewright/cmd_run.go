package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runCmd processes one request end to end.
var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Process a request end to end",
	Long: `Runs the full pipeline for one request: classify the intent, build
the ordered tool plan, and execute it through the bounded state machine
with per-step status updates. The full trace prints as JSON.

Tool calls run against the dry-run echo registry; register real handlers
to make them effectful.

Example:
  pagewright run "make a new page called gallery.html"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

func runRequest(cmd *cobra.Command, args []string) error {
	text := joinArgs(args)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Graceful shutdown
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

	out := p.process(ctx, channel, text)
	return printJSON(out)
}
