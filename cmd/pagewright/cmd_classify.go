package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pagewright/internal/intent"
)

// classifyCmd classifies a request without planning or executing anything.
var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify a request into its intent category",
	Long: `Classifies a free-text request into one of the closed intent
categories (CREATE_NEW, EDIT_EXISTING, READ_ONLY, COMMIT, CONVERSATION)
and prints the result as JSON.

With a configured model provider the classification is model-first with a
silent deterministic fallback; otherwise the keyword cascade answers alone.

Example:
  pagewright classify "change the title in snake.html"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := joinArgs(args)

	classifier := intent.NewClassifier(buildClient(cfg, logger), cfg, logger)
	result := classifier.Classify(cmd.Context(), text)

	logger.Debug("Classification complete",
		zap.String("intent", result.Intent.String()),
		zap.String("method", result.Method))

	return printJSON(result)
}
