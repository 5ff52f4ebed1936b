package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// GlobSet is a compiled list of slash-separated glob patterns.
type GlobSet struct {
	patterns []string
	globs    []glob.Glob
}

// CompileGlobs compiles patterns with '/' as the separator, so '*' stays
// within one path segment and '**' crosses segments.
func CompileGlobs(patterns []string) (*GlobSet, error) {
	return compileGlobs(patterns, '/')
}

// CompileNameGlobs compiles patterns without separators, so '*' matches
// any run of characters. Decorator patterns use this form.
func CompileNameGlobs(patterns []string) (*GlobSet, error) {
	return compileGlobs(patterns)
}

func compileGlobs(patterns []string, separators ...rune) (*GlobSet, error) {
	s := &GlobSet{patterns: patterns, globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(p, separators...)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		s.globs = append(s.globs, g)
	}
	return s, nil
}

// MustCompileGlobs is CompileGlobs for patterns known to be valid.
func MustCompileGlobs(patterns []string) *GlobSet {
	s, err := CompileGlobs(patterns)
	if err != nil {
		panic(err)
	}
	return s
}

// Patterns returns the source patterns.
func (s *GlobSet) Patterns() []string {
	if s == nil {
		return nil
	}
	return s.patterns
}

// Len returns the number of patterns.
func (s *GlobSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.globs)
}

// Match reports whether rel, a slash-separated path relative to the
// project root, matches any pattern. A leading "**/" also matches at the
// root, so "**/*.py" matches "app.py".
func (s *GlobSet) Match(rel string) bool {
	if s == nil {
		return false
	}
	rel = strings.TrimPrefix(rel, "./")
	for _, g := range s.globs {
		if g.Match(rel) || g.Match("/"+rel) {
			return true
		}
	}
	return false
}

// MatchName reports whether a single name (no separators) matches any
// pattern.
func (s *GlobSet) MatchName(name string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// IgnoreDecoratorGlobs compiles linting.ignore_decorators with the leading
// '@' removed.
func (c *Config) IgnoreDecoratorGlobs() (*GlobSet, error) {
	return CompileNameGlobs(trimAt(c.Linting.IgnoreDecorators))
}
