// Package plan turns classified requests into executable tool plans. The
// primary path asks the model for a JSON plan; a deterministic pattern
// cascade covers every request the model path cannot.
package plan

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"pagewright/internal/config"
	"pagewright/internal/llm"
	"pagewright/internal/resolve"
	"pagewright/internal/types"
)

// =============================================================================
// ROUTER - Pattern Cascade With Optional Model Planning
// =============================================================================

// Keyword groups for the cascade. These overlap the classifier's groups on
// purpose: routing re-derives intent from scratch so a Plan stands on its own.
var (
	structuralVerbs  = []string{"follow", "match", "same"}
	structuralNouns  = []string{"design", "structure", "format", "layout"}
	editVerbs        = []string{"edit", "change", "replace", "update", "fix", "modify"}
	createVerbs      = []string{"create", "build", "make", "generate", "new"}
	commitVerbs      = []string{"commit", "push", "save", "deploy"}
	readVerbs        = []string{"list", "show", "find", "search", "what", "read"}
	searchTerms      = []string{"search", "find", "grep"}
	freshnessWords   = []string{"latest", "current", "recent", "news"}
	freshnessPhrases = []string{"what is", "who is"}
)

// routeContext carries the facts each rule predicate consults, computed once
// per request.
type routeContext struct {
	text  string
	lower string
	sctx  types.SessionContext

	primary     string
	primaryOK   bool
	secondary   string
	secondaryOK bool
	anaphor     string
	anaphorOK   bool
}

// routeRule is one branch of the cascade. build returns ok=false to pass
// evaluation to the next rule.
type routeRule struct {
	name  string
	build func(rc *routeContext) (types.Plan, bool)
}

// Router builds Plans from request text and session context.
type Router struct {
	paths    *resolve.PathResolver
	anaphora *resolve.AnaphorResolver
	client   llm.Client
	cfg      *config.Config
	logger   *zap.Logger
	rules    []routeRule

	// Metrics (atomic)
	totalRouted  int64
	modelPlans   int64
	salvagedPlans int64
	patternPlans int64
}

// RouterStats is a point-in-time snapshot of router activity.
type RouterStats struct {
	Total    int64
	Model    int64
	Salvaged int64
	Pattern  int64
}

// NewRouter creates a router. A nil client disables model planning; every
// request then takes the pattern cascade.
func NewRouter(client llm.Client, cfg *config.Config, logger *zap.Logger) *Router {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		paths:    resolve.NewPathResolver(cfg.Router.PagesDir),
		anaphora: resolve.NewAnaphorResolver(),
		client:   client,
		cfg:      cfg,
		logger:   logger,
	}
	r.rules = []routeRule{
		{"structural_transformation", r.ruleStructural},
		{"edit", r.ruleEdit},
		{"create", r.ruleCreate},
		{"commit", r.ruleCommit},
		{"read_search", r.ruleReadSearch},
		{"freshness", r.ruleFreshness},
		{"anaphoric_follow_up", r.ruleAnaphor},
		{"default", r.ruleDefault},
	}
	return r
}

// Route builds a Plan for text under sctx. The model planning path is tried
// first when available; the pattern cascade answers everything else. Route
// never fails: the cascade's default rule is total.
func (r *Router) Route(ctx context.Context, text string, sctx types.SessionContext) types.Plan {
	atomic.AddInt64(&r.totalRouted, 1)

	if r.client != nil && r.cfg.Router.ModelPlanning {
		if p, ok := r.routeModel(ctx, text, sctx); ok {
			switch p.Method {
			case types.MethodModel:
				atomic.AddInt64(&r.modelPlans, 1)
			case types.MethodFallback:
				atomic.AddInt64(&r.salvagedPlans, 1)
			}
			return p
		}
	}

	atomic.AddInt64(&r.patternPlans, 1)
	p := r.routePattern(text, sctx)
	if err := ValidatePlan(p); err != nil {
		// A cascade branch that builds an invalid plan is a programming
		// error; degrade to conversation rather than hand it downstream.
		r.logger.Error("pattern plan failed validation", zap.Error(err))
		return r.conversationPlan("invalid plan discarded")
	}
	return p
}

// routePattern evaluates the cascade in order; the first rule that matches
// produces the Plan.
func (r *Router) routePattern(text string, sctx types.SessionContext) types.Plan {
	rc := r.newRouteContext(text, sctx)
	for _, rule := range r.rules {
		if p, ok := rule.build(rc); ok {
			r.logger.Debug("pattern rule matched",
				zap.String("rule", rule.name),
				zap.String("intent", p.Intent.String()))
			return p
		}
	}
	// Unreachable: ruleDefault always matches.
	return r.conversationPlan("no rule matched")
}

func (r *Router) newRouteContext(text string, sctx types.SessionContext) *routeContext {
	rc := &routeContext{
		text:  text,
		lower: strings.ToLower(text),
		sctx:  sctx,
	}
	rc.primary, rc.primaryOK = r.paths.ResolvePrimary(text)
	rc.secondary, rc.secondaryOK = r.paths.ResolveSecondary(text)
	rc.anaphor, rc.anaphorOK = r.anaphora.Resolve(text, sctx)
	return rc
}

// Stats returns a snapshot of router activity.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		Total:    atomic.LoadInt64(&r.totalRouted),
		Model:    atomic.LoadInt64(&r.modelPlans),
		Salvaged: atomic.LoadInt64(&r.salvagedPlans),
		Pattern:  atomic.LoadInt64(&r.patternPlans),
	}
}

// -----------------------------------------------------------------------------
// Cascade rules, in evaluation order.
// -----------------------------------------------------------------------------

// ruleStructural handles "build X following the design of Y" requests. The
// produced page is new even though the request reads like an edit, so the
// intent is CREATE_NEW.
func (r *Router) ruleStructural(rc *routeContext) (types.Plan, bool) {
	if !rc.primaryOK || !r.hasStructuralCue(rc) {
		return types.Plan{}, false
	}

	if rc.secondaryOK {
		return types.Plan{
			Intent: types.IntentCreateNew,
			ToolSequence: []types.ToolName{
				types.ToolFileExists, types.ToolReadFile, types.ToolReadFile, types.ToolWriteFile,
			},
			ParameterHints: map[types.ToolName]map[string]string{
				types.ToolFileExists: {"path": rc.primary},
				types.ToolReadFile:   {"path": rc.primary, "reference_path": rc.secondary},
				types.ToolWriteFile:  {"path": rc.primary},
			},
			ContextNeeded:      []string{"recent_files"},
			Confidence:         0.85,
			Reasoning:          fmt.Sprintf("structural transformation of %s modeled on %s", rc.primary, rc.secondary),
			ExpectedIterations: 4,
			Method:             types.MethodPattern,
		}, true
	}

	return types.Plan{
		Intent: types.IntentCreateNew,
		ToolSequence: []types.ToolName{
			types.ToolFileExists, types.ToolReadFile, types.ToolWriteFile,
		},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolFileExists: {"path": rc.primary},
			types.ToolReadFile:   {"path": rc.primary},
			types.ToolWriteFile:  {"path": rc.primary},
		},
		ContextNeeded:      []string{"recent_files"},
		Confidence:         0.8,
		Reasoning:          fmt.Sprintf("structural transformation of %s", rc.primary),
		ExpectedIterations: 3,
		Method:             types.MethodPattern,
	}, true
}

func (r *Router) hasStructuralCue(rc *routeContext) bool {
	if hasAnyWord(rc.lower, structuralVerbs) && hasAnyWord(rc.lower, structuralNouns) {
		return true
	}
	if strings.Contains(rc.lower, "similar to") {
		return true
	}
	// Bare "like" counts only when it introduces a concrete reference.
	return hasWord(rc.lower, "like") && rc.secondaryOK
}

func (r *Router) ruleEdit(rc *routeContext) (types.Plan, bool) {
	if !rc.primaryOK || !hasAnyWord(rc.lower, editVerbs) {
		return types.Plan{}, false
	}
	return types.Plan{
		Intent: types.IntentEditExisting,
		ToolSequence: []types.ToolName{
			types.ToolFileExists, types.ToolReadFile, types.ToolEditFile,
		},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolFileExists: {"path": rc.primary},
			types.ToolReadFile:   {"path": rc.primary},
			types.ToolEditFile:   {"path": rc.primary},
		},
		ContextNeeded:      []string{"recent_files"},
		Confidence:         0.85,
		Reasoning:          fmt.Sprintf("edit verb with resolved target %s", rc.primary),
		ExpectedIterations: 3,
		Method:             types.MethodPattern,
	}, true
}

func (r *Router) ruleCreate(rc *routeContext) (types.Plan, bool) {
	if !hasAnyWord(rc.lower, createVerbs) {
		return types.Plan{}, false
	}
	p := types.Plan{
		Intent:             types.IntentCreateNew,
		ToolSequence:       []types.ToolName{types.ToolListFiles, types.ToolWriteFile},
		ParameterHints:     map[types.ToolName]map[string]string{},
		Confidence:         0.8,
		Reasoning:          "creation verb",
		ExpectedIterations: 2,
		Method:             types.MethodPattern,
	}
	p.ParameterHints[types.ToolListFiles] = map[string]string{"dir": r.cfg.Router.PagesDir}
	if rc.primaryOK {
		p.ParameterHints[types.ToolWriteFile] = map[string]string{"path": rc.primary}
		p.Reasoning = fmt.Sprintf("creation verb with target %s", rc.primary)
	}
	return p, true
}

func (r *Router) ruleCommit(rc *routeContext) (types.Plan, bool) {
	if !hasAnyWord(rc.lower, commitVerbs) {
		return types.Plan{}, false
	}
	return types.Plan{
		Intent: types.IntentCommit,
		ToolSequence: []types.ToolName{
			types.ToolGetRepoStatus, types.ToolCommitChanges,
		},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolCommitChanges: {"message": rc.text},
		},
		Confidence:         0.85,
		Reasoning:          "commit action verb",
		ExpectedIterations: 2,
		Method:             types.MethodPattern,
	}, true
}

// ruleReadSearch declines bare freshness questions ("what is the latest...")
// so they reach ruleFreshness; everything else with a query verb resolves
// here.
func (r *Router) ruleReadSearch(rc *routeContext) (types.Plan, bool) {
	if !hasAnyWord(rc.lower, readVerbs) {
		return types.Plan{}, false
	}

	if rc.primaryOK {
		return types.Plan{
			Intent: types.IntentReadOnly,
			ToolSequence: []types.ToolName{
				types.ToolFileExists, types.ToolReadFile,
			},
			ParameterHints: map[types.ToolName]map[string]string{
				types.ToolFileExists: {"path": rc.primary},
				types.ToolReadFile:   {"path": rc.primary},
			},
			Confidence:         0.85,
			Reasoning:          fmt.Sprintf("read query with resolved target %s", rc.primary),
			ExpectedIterations: 2,
			Method:             types.MethodPattern,
		}, true
	}

	if hasAnyWord(rc.lower, searchTerms) {
		return types.Plan{
			Intent:       types.IntentReadOnly,
			ToolSequence: []types.ToolName{types.ToolSearchFiles},
			ParameterHints: map[types.ToolName]map[string]string{
				types.ToolSearchFiles: {"query": rc.text},
			},
			Confidence:         0.8,
			Reasoning:          "explicit search term",
			ExpectedIterations: 1,
			Method:             types.MethodPattern,
		}, true
	}

	if r.hasFreshnessCue(rc.lower) {
		return types.Plan{}, false
	}

	return types.Plan{
		Intent:       types.IntentReadOnly,
		ToolSequence: []types.ToolName{types.ToolListFiles},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolListFiles: {"dir": r.cfg.Router.PagesDir},
		},
		Confidence:         0.75,
		Reasoning:          "read query without a concrete target",
		ExpectedIterations: 1,
		Method:             types.MethodPattern,
	}, true
}

func (r *Router) ruleFreshness(rc *routeContext) (types.Plan, bool) {
	if rc.primaryOK || !r.hasFreshnessCue(rc.lower) {
		return types.Plan{}, false
	}
	return types.Plan{
		Intent:       types.IntentReadOnly,
		ToolSequence: []types.ToolName{types.ToolWebSearch},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolWebSearch: {"query": rc.text},
		},
		Confidence:         0.75,
		Reasoning:          "freshness query",
		ExpectedIterations: 1,
		Method:             types.MethodPattern,
	}, true
}

func (r *Router) hasFreshnessCue(lower string) bool {
	return hasAnyWord(lower, freshnessWords) || hasAnyPhrase(lower, freshnessPhrases)
}

func (r *Router) ruleAnaphor(rc *routeContext) (types.Plan, bool) {
	if !rc.anaphorOK {
		return types.Plan{}, false
	}
	return types.Plan{
		Intent: types.IntentEditExisting,
		ToolSequence: []types.ToolName{
			types.ToolFileExists, types.ToolReadFile, types.ToolEditFile,
		},
		ParameterHints: map[types.ToolName]map[string]string{
			types.ToolFileExists: {"path": rc.anaphor},
			types.ToolReadFile:   {"path": rc.anaphor},
			types.ToolEditFile:   {"path": rc.anaphor},
		},
		ContextNeeded:      []string{"recent_files"},
		Confidence:         0.75,
		Reasoning:          fmt.Sprintf("follow-up resolved to %s", rc.anaphor),
		ExpectedIterations: 3,
		Method:             types.MethodPattern,
	}, true
}

// ruleDefault is total: everything lands here eventually. An edit-like verb
// with no resolvable target asks for clarification instead of guessing.
func (r *Router) ruleDefault(rc *routeContext) (types.Plan, bool) {
	p := r.conversationPlan("no actionable pattern")
	if hasAnyWord(rc.lower, editVerbs) {
		p.ClarifyFirst = true
		p.ClarifyQuestion = "Which file should I update?"
		p.Reasoning = "edit verb without a resolvable target"
	}
	return p, true
}

func (r *Router) conversationPlan(reason string) types.Plan {
	return types.Plan{
		Intent:             types.IntentConversation,
		ToolSequence:       nil,
		Confidence:         0.6,
		Reasoning:          reason,
		ExpectedIterations: 1,
		Method:             types.MethodPattern,
	}
}

// -----------------------------------------------------------------------------
// Shared keyword helpers.
// -----------------------------------------------------------------------------

func hasAnyWord(lower string, words []string) bool {
	for _, w := range words {
		if hasWord(lower, w) {
			return true
		}
	}
	return false
}

func hasAnyPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func hasWord(lower, needle string) bool {
	for start := 0; ; {
		idx := strings.Index(lower[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(needle)
		leftOK := idx == 0 || !isWordChar(lower[idx-1])
		rightOK := end == len(lower) || !isWordChar(lower[end])
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
