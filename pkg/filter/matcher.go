// Package filter applies feature include/exclude patterns and per-feature
// group filtering (spec §4.5).
package filter

import (
	"regexp"
	"strings"
)

// Matcher is a compiled fuzzy pattern: wildcard patterns (containing `*`)
// become an anchored regex with `*` mapped to `.*`; plain patterns match
// by case-insensitive equality or substring.
type Matcher struct {
	literal string
	re      *regexp.Regexp
}

// Compile builds a Matcher from a single pattern.
func Compile(pattern string) Matcher {
	if strings.Contains(pattern, "*") {
		quoted := regexp.QuoteMeta(pattern)
		quoted = strings.ReplaceAll(quoted, `\*`, ".*")
		re := regexp.MustCompile("(?i)^" + quoted + "$")
		return Matcher{re: re}
	}
	return Matcher{literal: strings.ToLower(pattern)}
}

// Match reports whether candidate matches the pattern.
func (m Matcher) Match(candidate string) bool {
	if m.re != nil {
		return m.re.MatchString(candidate)
	}
	return strings.Contains(strings.ToLower(candidate), m.literal)
}

// CompileAll compiles a slice of patterns.
func CompileAll(patterns []string) []Matcher {
	out := make([]Matcher, len(patterns))
	for i, p := range patterns {
		out[i] = Compile(p)
	}
	return out
}

// AnyMatch reports whether candidate matches at least one of matchers.
func AnyMatch(matchers []Matcher, candidate string) bool {
	for _, m := range matchers {
		if m.Match(candidate) {
			return true
		}
	}
	return false
}
