package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pagewright/internal/types"
)

// =============================================================================
// MODEL PLANNING - JSON Proposal With Layered Parsing And Salvage
// =============================================================================

// planSystemPrompt asks the model for a machine-readable plan. Tool ids and
// intent labels are enumerated so the model has no room to invent.
const planSystemPrompt = `You plan tool usage for a page-building assistant.
Respond with ONLY a JSON object, no prose:
{
  "intent": "CREATE_NEW|EDIT_EXISTING|READ_ONLY|COMMIT|CONVERSATION",
  "toolSequence": ["tool_id", ...],
  "parameterHints": {"tool_id": {"path": "..."}},
  "confidence": 0.0,
  "reasoning": "one short sentence"
}

Valid tool ids: file_exists, read_file, write_file, edit_file, list_files,
search_files, web_search, get_repo_status, commit_changes.
CONVERSATION must have an empty toolSequence. Tools run strictly in order.`

// planProposal is the wire shape of a model-proposed plan.
type planProposal struct {
	Intent          string                       `json:"intent"`
	ToolSequence    []string                     `json:"toolSequence"`
	ParameterHints  map[string]map[string]string `json:"parameterHints"`
	Confidence      float64                      `json:"confidence"`
	Reasoning       string                       `json:"reasoning"`
	ClarifyFirst    bool                         `json:"clarifyFirst"`
	ClarifyQuestion string                       `json:"clarifyQuestion"`
}

// proposalStrategy is one way of pulling a proposal out of raw model output.
type proposalStrategy struct {
	name string
	fn   func(raw string) (*planProposal, error)
}

// proposalStrategies are tried in order: direct JSON, then fenced markdown,
// then a brace scan over mixed prose.
var proposalStrategies = []proposalStrategy{
	{"json", parseDirectJSON},
	{"json_markdown", parseMarkdownJSON},
	{"json_embedded", parseEmbeddedJSON},
}

// routeModel asks the model for a plan and adopts it when it survives
// validation. ok=false on any failure; the caller falls back to the cascade.
func (r *Router) routeModel(ctx context.Context, text string, sctx types.SessionContext) (types.Plan, bool) {
	mctx, cancel := context.WithTimeout(ctx, r.cfg.GetRouteTimeout())
	defer cancel()

	raw, err := r.client.CompleteWithSystem(mctx, planSystemPrompt, r.buildPlanPrompt(text, sctx))
	if err != nil {
		r.logger.Debug("model planning unavailable", zap.Error(err))
		return types.Plan{}, false
	}

	proposal, method, ok := parseProposal(raw)
	if !ok {
		r.logger.Debug("model plan unparseable", zap.Int("raw_len", len(raw)))
		return types.Plan{}, false
	}
	r.logger.Debug("model plan parsed", zap.String("strategy", method))

	return r.adoptProposal(proposal)
}

func (r *Router) buildPlanPrompt(text string, sctx types.SessionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", text)
	if len(sctx.RecentFiles) > 0 {
		fmt.Fprintf(&b, "Recently touched files (most recent first): %s\n",
			strings.Join(sctx.RecentFiles, ", "))
	}
	if sctx.LastIntent != "" {
		fmt.Fprintf(&b, "Previous intent: %s\n", sctx.LastIntent)
	}
	b.WriteString("\nJSON plan:")
	return b.String()
}

// parseProposal runs the layered parse. It returns the strategy name that
// succeeded for debug logging.
func parseProposal(raw string) (*planProposal, string, bool) {
	for _, s := range proposalStrategies {
		p, err := s.fn(raw)
		if err == nil && p != nil {
			return p, s.name, true
		}
	}
	return nil, "", false
}

func parseDirectJSON(raw string) (*planProposal, error) {
	var p planProposal
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// parseMarkdownJSON handles ```json ... ``` fences.
func parseMarkdownJSON(raw string) (*planProposal, error) {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "```")
	if start < 0 {
		return nil, fmt.Errorf("no code fence")
	}
	s = s[start+3:]
	// Drop a language tag on the fence line.
	if nl := strings.Index(s, "\n"); nl >= 0 {
		first := strings.TrimSpace(s[:nl])
		if first == "json" || first == "" {
			s = s[nl+1:]
		}
	}
	end := strings.Index(s, "```")
	if end < 0 {
		return nil, fmt.Errorf("unterminated code fence")
	}
	return parseDirectJSON(s[:end])
}

// parseEmbeddedJSON scans mixed prose for the outermost JSON object.
func parseEmbeddedJSON(raw string) (*planProposal, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found")
	}
	return parseDirectJSON(raw[start : end+1])
}

// adoptProposal turns a parsed proposal into a Plan. A valid intent with a
// broken tool sequence is salvaged onto the canonical sequence for that
// intent; an invalid intent rejects the proposal outright.
func (r *Router) adoptProposal(p *planProposal) (types.Plan, bool) {
	intent, ok := types.ParseIntent(strings.ToUpper(strings.TrimSpace(p.Intent)))
	if !ok {
		r.logger.Debug("model plan intent outside enum", zap.String("intent", p.Intent))
		return types.Plan{}, false
	}

	out := types.Plan{
		Intent:          intent,
		Confidence:      clamp01(p.Confidence),
		Reasoning:       strings.TrimSpace(p.Reasoning),
		ClarifyFirst:    p.ClarifyFirst,
		ClarifyQuestion: strings.TrimSpace(p.ClarifyQuestion),
		Method:          types.MethodModel,
	}
	if out.Reasoning == "" {
		out.Reasoning = "model proposed plan"
	}
	if out.ClarifyFirst && out.ClarifyQuestion == "" {
		out.ClarifyQuestion = "Which file should I update?"
	}
	// A clarify plan never carries tools.
	if out.ClarifyFirst {
		out.ExpectedIterations = 1
		return out, true
	}

	tools, hints, valid := convertToolSequence(p, intent)
	out.ToolSequence = tools
	out.ParameterHints = hints
	if !valid {
		// Salvage: canonical sequence for the intent, hints discarded along
		// with the broken sequence they referred to.
		out.ToolSequence = types.CanonicalSequence(intent)
		out.ParameterHints = nil
		out.Method = types.MethodFallback
		out.Reasoning = fmt.Sprintf("model intent %s with salvaged tool sequence", intent)
	}

	out.ExpectedIterations = len(out.ToolSequence)
	if out.ExpectedIterations < 1 {
		out.ExpectedIterations = 1
	}

	if err := ValidatePlan(out); err != nil {
		r.logger.Debug("model plan failed validation", zap.Error(err))
		return types.Plan{}, false
	}
	return out, true
}

// convertToolSequence validates and converts the proposal's tools. valid is
// false when any tool id is unknown or the sequence shape contradicts the
// intent.
func convertToolSequence(p *planProposal, intent types.IntentType) ([]types.ToolName, map[types.ToolName]map[string]string, bool) {
	if intent == types.IntentConversation {
		// Conversation never carries tools; a model that attaches them is
		// proposing a sequence we refuse to run.
		return nil, nil, len(p.ToolSequence) == 0
	}
	if len(p.ToolSequence) == 0 {
		return nil, nil, false
	}

	tools := make([]types.ToolName, 0, len(p.ToolSequence))
	for _, raw := range p.ToolSequence {
		name := types.ToolName(strings.TrimSpace(strings.ToLower(raw)))
		if !types.IsKnownTool(name) {
			return nil, nil, false
		}
		tools = append(tools, name)
	}

	var hints map[types.ToolName]map[string]string
	for rawTool, kv := range p.ParameterHints {
		name := types.ToolName(strings.TrimSpace(strings.ToLower(rawTool)))
		if !types.IsKnownTool(name) || len(kv) == 0 {
			continue
		}
		if hints == nil {
			hints = make(map[types.ToolName]map[string]string)
		}
		hints[name] = kv
	}
	return tools, hints, true
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
