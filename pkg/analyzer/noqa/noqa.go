// Package noqa recognizes suppression comments such as "# noqa: F401".
package noqa

import (
	"regexp"
	"strings"
)

// DefaultPatterns are the suppression markers honored when none are
// configured.
var DefaultPatterns = []string{"# noqa", "# type: ignore"}

var codesPattern = regexp.MustCompile(`(?i)noqa:\s*([\w,\s]+)`)

// Match is the outcome of checking one comment.
type Match struct {
	Matched bool
	Pattern string
	Codes   []string
}

// Matcher checks comments against a fixed pattern list. Matching is a
// case-insensitive substring test.
type Matcher struct {
	patterns []string
	lowered  []string
}

// New creates a matcher. An empty pattern list selects DefaultPatterns.
func New(patterns []string) *Matcher {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	m := &Matcher{patterns: patterns, lowered: make([]string, len(patterns))}
	for i, p := range patterns {
		m.lowered[i] = strings.ToLower(p)
	}
	return m
}

// Patterns returns the configured patterns.
func (m *Matcher) Patterns() []string {
	return m.patterns
}

// Check reports whether comment suppresses the line it sits on, and the
// rule codes listed after "noqa:", if any.
func (m *Matcher) Check(comment string) Match {
	if comment == "" {
		return Match{}
	}
	lower := strings.ToLower(comment)
	for i, p := range m.lowered {
		if !strings.Contains(lower, p) {
			continue
		}
		return Match{Matched: true, Pattern: m.patterns[i], Codes: codes(comment)}
	}
	return Match{}
}

func codes(comment string) []string {
	sub := codesPattern.FindStringSubmatch(comment)
	if sub == nil {
		return nil
	}
	var out []string
	for _, c := range strings.Split(sub[1], ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
