// Package intent maps free-text requests onto a closed intent enum. The
// primary path is a single bounded model call; a deterministic keyword
// cascade absorbs every model failure silently.
package intent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"pagewright/internal/config"
	"pagewright/internal/llm"
	"pagewright/internal/types"
)

// =============================================================================
// CLASSIFIER - Model-First Intent Detection With Silent Fallback
// =============================================================================

// classifySystemPrompt constrains the model to emit exactly one enum label.
const classifySystemPrompt = `You classify a user request into exactly one intent label.
Respond with ONLY the label, nothing else.

Labels:
CREATE_NEW - build a page or file that does not exist yet
EDIT_EXISTING - modify a page or file that already exists
READ_ONLY - look something up, list, show, or search; no changes made
COMMIT - commit, push, or deploy existing work
CONVERSATION - greetings, thanks, chit-chat, anything else`

// Classifier resolves request text to an IntentType.
type Classifier struct {
	client llm.Client
	cfg    *config.Config
	logger *zap.Logger

	// Metrics (atomic)
	totalClassified int64
	modelHits       int64
	fallbackHits    int64
}

// ClassifierStats is a point-in-time snapshot of classifier activity.
type ClassifierStats struct {
	Total        int64
	ModelHits    int64
	FallbackHits int64
}

// NewClassifier creates a classifier. A nil client disables the model path;
// every request then takes the deterministic cascade.
func NewClassifier(client llm.Client, cfg *config.Config, logger *zap.Logger) *Classifier {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Classify resolves text to an intent. The model path never surfaces an
// error: timeouts, transport failures, and out-of-enum labels all fall
// through to FallbackClassify.
func (c *Classifier) Classify(ctx context.Context, text string) types.ClassificationResult {
	atomic.AddInt64(&c.totalClassified, 1)

	if c.client != nil {
		if intent, ok := c.classifyModel(ctx, text); ok {
			atomic.AddInt64(&c.modelHits, 1)
			return types.ClassificationResult{
				Intent:     intent,
				Confidence: 0.9,
				Method:     types.MethodModel,
				Reasoning:  fmt.Sprintf("model selected %s", intent),
			}
		}
	}

	intent, rule := fallbackMatch(strings.ToLower(text))
	atomic.AddInt64(&c.fallbackHits, 1)
	return types.ClassificationResult{
		Intent:     intent,
		Confidence: 0.7,
		Method:     types.MethodFallback,
		Reasoning:  fmt.Sprintf("keyword rule %q matched", rule),
	}
}

// classifyModel runs the bounded model call under the classification timeout.
func (c *Classifier) classifyModel(ctx context.Context, text string) (types.IntentType, bool) {
	cctx, cancel := context.WithTimeout(ctx, c.cfg.GetClassifyTimeout())
	defer cancel()

	// GetLabelBudget never returns less than the longest label plus margin;
	// a starved budget would truncate EDIT_EXISTING into an invalid token.
	raw, err := c.client.CompleteBounded(cctx, classifySystemPrompt,
		fmt.Sprintf("Request: %s\n\nLabel:", text), c.cfg.GetLabelBudget())
	if err != nil {
		c.logger.Debug("model classification unavailable",
			zap.Error(err),
			zap.Int("text_len", len(text)))
		return 0, false
	}

	intent, ok := ExtractLabel(raw)
	if !ok {
		c.logger.Debug("model returned no usable label",
			zap.String("raw", truncateForLog(raw, 120)))
	}
	return intent, ok
}

// Stats returns a snapshot of classifier activity.
func (c *Classifier) Stats() ClassifierStats {
	return ClassifierStats{
		Total:        atomic.LoadInt64(&c.totalClassified),
		ModelHits:    atomic.LoadInt64(&c.modelHits),
		FallbackHits: atomic.LoadInt64(&c.fallbackHits),
	}
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
