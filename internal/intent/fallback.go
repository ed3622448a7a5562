package intent

import (
	"strings"

	"pagewright/internal/resolve"
	"pagewright/internal/types"
)

// Keyword groups for the deterministic cascade. Read-only detection runs
// before commit detection so "show commit history" stays a query.
var (
	readOnlyVerbs   = []string{"list", "show", "display", "find", "search", "get", "fetch", "read", "view", "check"}
	readOnlyPhrases = []string{"what is", "what are", "what was", "what were", "tell me", "give me"}
	commitVerbs     = []string{"commit", "push", "deploy"}
	createVerbs     = []string{"create", "build", "make", "generate", "new"}
	editVerbs       = []string{"edit", "change", "replace", "update", "fix", "modify", "adjust"}
	negativeWords   = []string{"broken", "bad", "wrong", "sucks"}
)

// fallbackRule pairs a match predicate with the intent it selects.
type fallbackRule struct {
	name    string
	matches func(lower string) bool
	intent  types.IntentType
}

// refResolver detects references to named resources for the edit rule. The
// default pages dir is fine here: only presence matters, not the value.
var refResolver = resolve.NewPathResolver(resolve.DefaultPagesDir)

// fallbackRules is evaluated in order; the first match wins.
var fallbackRules = []fallbackRule{
	{
		name: "read_only_query",
		matches: func(lower string) bool {
			return hasAnyWord(lower, readOnlyVerbs) || hasAnyPhrase(lower, readOnlyPhrases)
		},
		intent: types.IntentReadOnly,
	},
	{
		name: "commit_action",
		matches: func(lower string) bool {
			if hasAnyWord(lower, commitVerbs) {
				return true
			}
			return hasWord(lower, "save") && hasWord(lower, "push")
		},
		intent: types.IntentCommit,
	},
	{
		name: "creation",
		matches: func(lower string) bool {
			return hasAnyWord(lower, createVerbs)
		},
		intent: types.IntentCreateNew,
	},
	{
		name: "edit",
		matches: func(lower string) bool {
			if hasAnyWord(lower, editVerbs) || hasAnyWord(lower, negativeWords) {
				return true
			}
			_, ok := refResolver.ResolvePrimary(lower)
			return ok
		},
		intent: types.IntentEditExisting,
	},
}

// FallbackClassify maps free text to an intent without any model call.
// It is pure: the same text always yields the same intent.
func FallbackClassify(text string) types.IntentType {
	intent, _ := fallbackMatch(strings.ToLower(text))
	return intent
}

// fallbackMatch returns the selected intent and the name of the rule that
// fired, for reasoning strings.
func fallbackMatch(lower string) (types.IntentType, string) {
	for _, rule := range fallbackRules {
		if rule.matches(lower) {
			return rule.intent, rule.name
		}
	}
	return types.IntentConversation, "default"
}

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

// hasWord reports whether needle appears as a whole word in lower.
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
