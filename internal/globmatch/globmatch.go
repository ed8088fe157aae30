package globmatch

import (
	"regexp"
	"strings"
)

// Matcher compiles glob patterns to anchored regular expressions and caches
// the compiled form by literal pattern string. Pattern sets are small (a few
// dozen per run at most), so there is no eviction.
//
// Semantics:
//   - `*` matches any run of non-separator characters
//   - `?` matches exactly one non-separator character
//   - `**/` matches zero or more full path segments
//   - a bare `**` elsewhere matches across separators
//   - everything else is literal; matching is case-sensitive and anchored
type Matcher struct {
	cache map[string]*regexp.Regexp
}

// New creates a Matcher with an empty pattern cache.
func New() *Matcher {
	return &Matcher{cache: make(map[string]*regexp.Regexp)}
}

// Match reports whether path matches the glob pattern. Path separators are
// normalized to forward slashes before matching.
func (m *Matcher) Match(path, pattern string) bool {
	re := m.compile(pattern)
	return re.MatchString(strings.ReplaceAll(path, "\\", "/"))
}

// MatchAny reports whether path matches at least one of the patterns.
func (m *Matcher) MatchAny(path string, patterns []string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, pattern := range patterns {
		if m.compile(pattern).MatchString(normalized) {
			return true
		}
	}
	return false
}

func (m *Matcher) compile(pattern string) *regexp.Regexp {
	if re, ok := m.cache[pattern]; ok {
		return re
	}
	re := regexp.MustCompile("^" + globToRegexp(pattern) + "$")
	m.cache[pattern] = re
	return re
}

// globToRegexp translates one glob pattern into a regexp body. An unparsable
// pattern is a programming error, hence MustCompile above.
func globToRegexp(pattern string) string {
	pat := strings.ReplaceAll(pattern, "\\", "/")
	var b strings.Builder
	for i := 0; i < len(pat); {
		c := pat[i]
		switch {
		case c == '*':
			if i+1 < len(pat) && pat[i+1] == '*' {
				if i+2 < len(pat) && pat[i+2] == '/' {
					// `**/` — zero or more whole segments
					b.WriteString("(?:.+/)?")
					i += 3
					continue
				}
				b.WriteString(".*")
				i += 2
				continue
			}
			b.WriteString("[^/]*")
			i++
		case c == '?':
			b.WriteString("[^/]")
			i++
		case strings.ContainsRune(`.+^${}()|[]!\`, rune(c)):
			b.WriteByte('\\')
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}
