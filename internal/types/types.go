// Package types provides shared type definitions used across pagewright packages.
// This package exists to break import cycles between the resolvers, the router,
// and the orchestrator. Types in this package should be foundational data
// structures with no complex dependencies.
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// INTENT TYPES
// =============================================================================

// IntentType is the closed set of request categories the router understands.
// A model response outside this set is invalid and must be discarded in favor
// of the deterministic fallback, never passed through.
type IntentType int

const (
	IntentConversation IntentType = iota
	IntentCreateNew
	IntentEditExisting
	IntentReadOnly
	IntentCommit
)

// intentLabels maps each intent to its canonical wire label.
var intentLabels = map[IntentType]string{
	IntentConversation: "CONVERSATION",
	IntentCreateNew:    "CREATE_NEW",
	IntentEditExisting: "EDIT_EXISTING",
	IntentReadOnly:     "READ_ONLY",
	IntentCommit:       "COMMIT",
}

// String returns the canonical label for the intent.
func (it IntentType) String() string {
	if label, ok := intentLabels[it]; ok {
		return label
	}
	return fmt.Sprintf("IntentType(%d)", int(it))
}

// Valid reports whether the value is a member of the closed enum.
func (it IntentType) Valid() bool {
	_, ok := intentLabels[it]
	return ok
}

// Mutating reports whether the intent implies a state-changing operation.
// Only mutating intents feed the failure breaker.
func (it IntentType) Mutating() bool {
	switch it {
	case IntentCreateNew, IntentEditExisting, IntentCommit:
		return true
	default:
		return false
	}
}

// ParseIntent maps a wire label to its IntentType. The second return is false
// for anything outside the closed set, including truncated labels.
func ParseIntent(label string) (IntentType, bool) {
	for it, l := range intentLabels {
		if l == label {
			return it, true
		}
	}
	return IntentConversation, false
}

// IntentLabels returns every valid wire label. The slice is freshly allocated.
func IntentLabels() []string {
	labels := make([]string, 0, len(intentLabels))
	for _, it := range []IntentType{IntentCreateNew, IntentEditExisting, IntentReadOnly, IntentCommit, IntentConversation} {
		labels = append(labels, intentLabels[it])
	}
	return labels
}

// MarshalJSON encodes the intent as its canonical label.
func (it IntentType) MarshalJSON() ([]byte, error) {
	label, ok := intentLabels[it]
	if !ok {
		return nil, fmt.Errorf("unknown intent type %d", int(it))
	}
	return json.Marshal(label)
}

// UnmarshalJSON decodes a canonical label back into an IntentType.
func (it *IntentType) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	parsed, ok := ParseIntent(label)
	if !ok {
		return fmt.Errorf("invalid intent label %q", label)
	}
	*it = parsed
	return nil
}

// =============================================================================
// CLASSIFICATION / PLAN METHODS
// =============================================================================

// Decision-path markers recorded on classifications and plans.
const (
	// MethodModel marks a result produced by the probabilistic path.
	MethodModel = "model"
	// MethodFallback marks a model result salvaged by deterministic repair.
	MethodFallback = "fallback"
	// MethodPattern marks a result from the pure pattern cascade.
	MethodPattern = "pattern"
)

// =============================================================================
// TOOL NAMES
// =============================================================================

// ToolName identifies an external tool operation the orchestrator may schedule.
// The core only selects and sequences these; implementations live outside.
type ToolName string

const (
	ToolFileExists    ToolName = "file_exists"
	ToolReadFile      ToolName = "read_file"
	ToolWriteFile     ToolName = "write_file"
	ToolEditFile      ToolName = "edit_file"
	ToolListFiles     ToolName = "list_files"
	ToolSearchFiles   ToolName = "search_files"
	ToolWebSearch     ToolName = "web_search"
	ToolGetRepoStatus ToolName = "get_repo_status"
	ToolCommitChanges ToolName = "commit_changes"
)

// knownTools is the closed tool vocabulary, in a stable order.
var knownTools = []ToolName{
	ToolFileExists,
	ToolReadFile,
	ToolWriteFile,
	ToolEditFile,
	ToolListFiles,
	ToolSearchFiles,
	ToolWebSearch,
	ToolGetRepoStatus,
	ToolCommitChanges,
}

// KnownTools returns the closed tool vocabulary. The slice is freshly allocated.
func KnownTools() []ToolName {
	out := make([]ToolName, len(knownTools))
	copy(out, knownTools)
	return out
}

// IsKnownTool reports whether name is part of the closed tool vocabulary.
func IsKnownTool(name ToolName) bool {
	for _, t := range knownTools {
		if t == name {
			return true
		}
	}
	return false
}

// Mutating reports whether the tool changes workspace or repository state.
// Read-only tools report malformed input as structured result strings rather
// than errors, so a typo in a query never trips the failure breaker.
func (t ToolName) Mutating() bool {
	switch t {
	case ToolWriteFile, ToolEditFile, ToolCommitChanges:
		return true
	default:
		return false
	}
}

// CanonicalSequence returns the default tool sequence for an intent. The
// router uses it to salvage model plans with invalid tool lists, and the
// orchestrator uses it for the escalated attempt.
func CanonicalSequence(intent IntentType) []ToolName {
	switch intent {
	case IntentCreateNew:
		return []ToolName{ToolListFiles, ToolWriteFile}
	case IntentEditExisting:
		return []ToolName{ToolFileExists, ToolReadFile, ToolEditFile}
	case IntentReadOnly:
		return []ToolName{ToolFileExists, ToolReadFile}
	case IntentCommit:
		return []ToolName{ToolGetRepoStatus, ToolCommitChanges}
	default:
		return nil
	}
}

// =============================================================================
// REQUEST & SESSION CONTEXT
// =============================================================================

// Request is a single free-text user request. Immutable once received.
type Request struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Requester string         `json:"requester"`
	Channel   string         `json:"channel"`
	Time      time.Time      `json:"time"`
	Context   SessionContext `json:"context"`
}

// NewRequest builds a Request with a fresh ID and timestamp.
func NewRequest(text, requester, channel string, sctx SessionContext) Request {
	return Request{
		ID:        uuid.New().String(),
		Text:      text,
		Requester: requester,
		Channel:   channel,
		Time:      time.Now(),
		Context:   sctx,
	}
}

// SessionContext carries recent-activity hints from the calling session.
// The core only reads it; the session store owns mutation.
type SessionContext struct {
	// RecentFiles lists recently produced or edited resource identifiers,
	// most recent first. Anaphoric follow-ups resolve against entry zero.
	RecentFiles []string `json:"recentFiles"`

	// LastIntent is the label of the previous request's classified intent,
	// empty for a fresh session.
	LastIntent string `json:"lastIntent,omitempty"`

	// ChannelTopic is an optional hint describing the session's subject.
	ChannelTopic string `json:"channelTopic,omitempty"`

	// Extra holds additional context key-values supplied by the caller.
	Extra map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy so callers can snapshot without sharing slices.
func (sc SessionContext) Clone() SessionContext {
	out := sc
	if sc.RecentFiles != nil {
		out.RecentFiles = make([]string, len(sc.RecentFiles))
		copy(out.RecentFiles, sc.RecentFiles)
	}
	if sc.Extra != nil {
		out.Extra = make(map[string]string, len(sc.Extra))
		for k, v := range sc.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// =============================================================================
// CLASSIFICATION RESULT
// =============================================================================

// ClassificationResult is the classifier's verdict for one request.
// Produced fresh per request; never mutated.
type ClassificationResult struct {
	Intent     IntentType `json:"intent"`
	Confidence float64    `json:"confidence"`
	Method     string     `json:"method"`
	Reasoning  string     `json:"reasoning"`
}

// =============================================================================
// PLAN
// =============================================================================

// Plan is the structured, ordered description of tool calls and hints produced
// for a request. Built once by the router, consumed by the orchestrator,
// read-only afterward.
type Plan struct {
	Intent             IntentType                  `json:"intent"`
	ToolSequence       []ToolName                  `json:"toolSequence"`
	ParameterHints     map[ToolName]map[string]string `json:"parameterHints,omitempty"`
	ContextNeeded      []string                    `json:"contextNeeded,omitempty"`
	Confidence         float64                     `json:"confidence"`
	Reasoning          string                      `json:"reasoning"`
	ClarifyFirst       bool                        `json:"clarifyFirst"`
	ClarifyQuestion    string                      `json:"clarifyQuestion,omitempty"`
	ExpectedIterations int                         `json:"expectedIterations"`
	Method             string                      `json:"method"`
}

// HintFor returns the argument hints recorded for a tool, or nil.
func (p Plan) HintFor(tool ToolName) map[string]string {
	if p.ParameterHints == nil {
		return nil
	}
	return p.ParameterHints[tool]
}

// =============================================================================
// TOOL CALL RECORD
// =============================================================================

// ToolCallRecord captures one tool invocation. Appended by the orchestrator;
// never mutated.
type ToolCallRecord struct {
	Tool      ToolName          `json:"tool"`
	Args      map[string]string `json:"args,omitempty"`
	Result    string            `json:"result,omitempty"`
	Err       string            `json:"err,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Iteration int               `json:"iteration"`
	Time      time.Time         `json:"time"`
}

// Failed reports whether the call ended in an error.
func (r ToolCallRecord) Failed() bool {
	return r.Err != ""
}
