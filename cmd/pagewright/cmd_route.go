package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pagewright/internal/plan"
	"pagewright/internal/session"
	"pagewright/internal/types"
)

var routeRecent []string

// routeCmd builds the tool plan for a request without executing it.
var routeCmd = &cobra.Command{
	Use:   "route [text]",
	Short: "Build the tool plan for a request",
	Long: `Classifies a request and builds its ordered tool plan, printing the
plan as JSON without executing anything.

Recent files for anaphora resolution ("give it that vibe") come from
--recent when given, otherwise from scanning the workspace by modification
time.

Example:
  pagewright route "update part3.html to follow the same design as peanut-city.html"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringSliceVar(&routeRecent, "recent", nil, "Recent files for reference resolution, most recent first")
}

func runRoute(cmd *cobra.Command, args []string) error {
	text := joinArgs(args)
	ctx := cmd.Context()

	sctx := types.SessionContext{RecentFiles: routeRecent}
	if len(sctx.RecentFiles) == 0 {
		seeder := session.NewSeeder(workspaceDir(), cfg, logger)
		seeded, err := seeder.Seed(ctx)
		if err != nil {
			logger.Warn("Workspace seeding failed", zap.Error(err))
		} else {
			sctx.RecentFiles = seeded
		}
	}

	router := plan.NewRouter(buildClient(cfg, logger), cfg, logger)
	pl := router.Route(ctx, text, sctx)

	logger.Debug("Plan built",
		zap.String("intent", pl.Intent.String()),
		zap.String("method", pl.Method),
		zap.Int("steps", len(pl.ToolSequence)))

	return printJSON(pl)
}
