// Package resolve extracts file references and anaphoric targets from free
// text. Both resolvers are pure string computation; neither touches the
// filesystem.
package resolve

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultPagesDir is the canonical folder informal page references qualify into.
const DefaultPagesDir = "pages"

// pageExts are extensions that denote a page document. Informal references
// with these extensions auto-qualify into the canonical folder.
var pageExts = map[string]bool{
	".html": true,
	".htm":  true,
}

// codeExts are recognized code/style extensions. Informal references with
// these are NOT treated as file targets; bare mentions like "script.js" are
// usually inline snippet talk, not a request target. An explicit qualified
// reference is still honored verbatim.
var codeExts = map[string]bool{
	".js":   true,
	".css":  true,
	".json": true,
	".md":   true,
	".txt":  true,
	".ts":   true,
	".yaml": true,
	".yml":  true,
	".py":   true,
	".go":   true,
}

var (
	// urlPattern matches fully-qualified remote URLs.
	urlPattern = regexp.MustCompile(`https?://[^\s"'\x60)>\]]+`)

	// qualifiedPattern matches folder/name.ext tokens (at least one slash).
	qualifiedPattern = regexp.MustCompile(`(?:^|[\s"'\x60(=])([a-zA-Z0-9_.-]+(?:/[a-zA-Z0-9_.-]+)+\.[a-zA-Z0-9]{1,8})`)

	// informalPattern matches bare name.ext tokens (no slash).
	informalPattern = regexp.MustCompile(`(?:^|[\s"'\x60(=])([a-zA-Z0-9][a-zA-Z0-9_-]*\.[a-zA-Z0-9]{1,8})`)

	// secondaryPattern matches a reference introduced by "as/like/to", used
	// by structural-transformation requests ("same design as peanut-city.html").
	secondaryPattern = regexp.MustCompile(`(?i)\b(?:as|like|to)\s+["'\x60]?([a-zA-Z0-9_.-]+(?:/[a-zA-Z0-9_.-]+)*\.[a-zA-Z0-9]{1,8})["'\x60]?`)
)

// PathResolver turns free-text file references into repository paths.
type PathResolver struct {
	pagesDir string
}

// NewPathResolver creates a resolver qualifying informal page references into
// pagesDir. An empty pagesDir uses DefaultPagesDir.
func NewPathResolver(pagesDir string) *PathResolver {
	if pagesDir == "" {
		pagesDir = DefaultPagesDir
	}
	return &PathResolver{pagesDir: strings.Trim(pagesDir, "/")}
}

// ResolvePrimary extracts the main file reference from text. Three forms are
// recognized in strict priority order: an explicit qualified reference is
// used verbatim; a remote URL contributes its path segment; an informal bare
// filename qualifies into the canonical folder only for page extensions.
// A secondary "as/like/to" reference is never returned as the primary.
func (pr *PathResolver) ResolvePrimary(text string) (string, bool) {
	masked := maskSecondary(text)
	urls := urlPattern.FindAllString(masked, -1)
	masked = maskURLs(masked)

	// 1. Explicit qualified reference, leftmost match.
	if m := qualifiedPattern.FindStringSubmatch(masked); m != nil {
		return m[1], true
	}

	// 2. URL path segment.
	for _, raw := range urls {
		if p, ok := pathFromURL(raw); ok {
			return p, true
		}
	}

	// 3. Informal bare filename, page extensions only.
	for _, m := range informalPattern.FindAllStringSubmatch(masked, -1) {
		if p, ok := pr.qualifyInformal(m[1]); ok {
			return p, true
		}
	}

	return "", false
}

// ResolveSecondary extracts the "as/like/to <file>" reference used by
// structural-transformation requests. It is extracted separately and never
// conflated with the primary target.
func (pr *PathResolver) ResolveSecondary(text string) (string, bool) {
	m := secondaryPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	ref := m[1]
	if strings.Contains(ref, "/") {
		return ref, true
	}
	return pr.qualifyInformal(ref)
}

// qualifyInformal classifies a bare filename. Page extensions qualify into
// the canonical folder; code/style and unknown extensions are rejected.
func (pr *PathResolver) qualifyInformal(name string) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case pageExts[ext]:
		return pr.pagesDir + "/" + name, true
	case codeExts[ext]:
		return "", false
	default:
		return "", false
	}
}

// pathFromURL extracts the repository path carried in a remote URL.
func pathFromURL(raw string) (string, bool) {
	raw = strings.TrimRight(raw, ".,;:!?")
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return "", false
	}
	return p, true
}

// maskSecondary blanks the "as/like/to <file>" clause so primary scanning
// cannot pick it up.
func maskSecondary(text string) string {
	return secondaryPattern.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

// maskURLs blanks URL spans so the qualified and informal patterns cannot
// match inside them.
func maskURLs(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}
