package intent

import (
	"strings"

	"pagewright/internal/types"
)

// labelStrategy is one way of pulling an enum label out of raw model output.
type labelStrategy struct {
	name string
	fn   func(raw string) (types.IntentType, bool)
}

// labelStrategies are tried in order: exact match, then markdown-stripped,
// then an embedded scan over prose. The first hit wins.
var labelStrategies = []labelStrategy{
	{"exact", labelExact},
	{"stripped", labelStripped},
	{"embedded", labelEmbedded},
}

// ExtractLabel pulls an intent label out of raw model output. It tolerates
// markdown fences, quoting, and prose around the label; anything it cannot
// resolve to a member of the enum reports ok=false.
func ExtractLabel(raw string) (types.IntentType, bool) {
	for _, s := range labelStrategies {
		if intent, ok := s.fn(raw); ok {
			return intent, true
		}
	}
	return 0, false
}

func labelExact(raw string) (types.IntentType, bool) {
	return types.ParseIntent(strings.ToUpper(strings.TrimSpace(raw)))
}

func labelStripped(raw string) (types.IntentType, bool) {
	s := strings.Trim(strings.TrimSpace(raw), "`\"'* \t\r\n.:")
	return types.ParseIntent(strings.ToUpper(s))
}

// labelEmbedded scans for any enum label inside the response and takes the
// leftmost occurrence.
func labelEmbedded(raw string) (types.IntentType, bool) {
	upper := strings.ToUpper(raw)
	best := -1
	var bestIntent types.IntentType
	for _, label := range types.IntentLabels() {
		idx := strings.Index(upper, label)
		if idx < 0 {
			continue
		}
		if best == -1 || idx < best {
			best = idx
			bestIntent, _ = types.ParseIntent(label)
		}
	}
	if best == -1 {
		return 0, false
	}
	return bestIntent, true
}
