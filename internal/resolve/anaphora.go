package resolve

import (
	"regexp"
	"strings"

	"pagewright/internal/types"
)

// Follow-up verb taxonomy. An anaphoric token alone ("it", "that") is not
// enough to redirect a request at recent work; it must pair with a verb from
// one of these groups.
var followUpVerbs = map[string][]string{
	"repair":      {"fix", "broken", "bug", "debug", "patch"},
	"enhancement": {"vibe", "style", "theme", "darker", "turn into"},
	"refinement":  {"improve", "polish", "tweak", "simplify", "clean", "optimize"},
	"resize":      {"bigger", "resize", "expand"},
	"removal":     {"remove", "hide", "trim"},
	"movement":    {"center", "move", "align", "swap"},
}

// anaphorTokenPattern matches bare anaphoric pronouns as whole words.
var anaphorTokenPattern = regexp.MustCompile(`(?i)\b(it|that|this)\b`)

// anaphorPhrases are demonstrative noun phrases that count as anaphora.
var anaphorPhrases = []string{"the page", "the game"}

// AnaphorResolver resolves pronoun references against recent session activity.
type AnaphorResolver struct{}

// NewAnaphorResolver creates an AnaphorResolver.
func NewAnaphorResolver() *AnaphorResolver {
	return &AnaphorResolver{}
}

// Resolve returns the most recent session file when the text is an anaphoric
// follow-up: an anaphoric token plus a follow-up verb. A bare "give it that
// vibe" resolves without a restated filename.
func (ar *AnaphorResolver) Resolve(text string, sctx types.SessionContext) (string, bool) {
	if !HasAnaphorToken(text) {
		return "", false
	}
	if _, _, ok := DetectFollowUpVerb(text); !ok {
		return "", false
	}
	if len(sctx.RecentFiles) == 0 {
		return "", false
	}
	return sctx.RecentFiles[0], true
}

// HasAnaphorToken reports whether text contains an anaphoric pronoun or
// demonstrative phrase.
func HasAnaphorToken(text string) bool {
	if anaphorTokenPattern.MatchString(text) {
		return true
	}
	lower := strings.ToLower(text)
	for _, phrase := range anaphorPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// DetectFollowUpVerb returns the taxonomy group and matched verb for the
// first follow-up verb found in text. Multi-word entries like "turn into"
// match with intervening words ("turn it into a gallery").
func DetectFollowUpVerb(text string) (group, verb string, ok bool) {
	lower := strings.ToLower(text)
	for _, g := range []string{"repair", "enhancement", "refinement", "resize", "removal", "movement"} {
		for _, v := range followUpVerbs[g] {
			if strings.Contains(v, " ") {
				if matchesSplitPhrase(lower, v) {
					return g, v, true
				}
				continue
			}
			if containsWord(lower, v) {
				return g, v, true
			}
		}
	}
	return "", "", false
}

// matchesSplitPhrase reports whether every word of phrase appears in order.
func matchesSplitPhrase(lower, phrase string) bool {
	idx := 0
	for _, part := range strings.Fields(phrase) {
		i := indexWord(lower[idx:], part)
		if i < 0 {
			return false
		}
		idx += i + len(part)
	}
	return true
}

// containsWord matches needle as a whole word in lowered text.
func containsWord(lower, needle string) bool {
	return indexWord(lower, needle) >= 0
}

// indexWord returns the first whole-word occurrence of needle, or -1.
func indexWord(lower, needle string) int {
	idx := 0
	for {
		i := strings.Index(lower[idx:], needle)
		if i < 0 {
			return -1
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordChar(lower[start-1])
		afterOK := end == len(lower) || !isWordChar(lower[end])
		if beforeOK && afterOK {
			return start
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}
