package noqa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_Check(t *testing.T) {
	m := New(nil)

	tests := []struct {
		name    string
		comment string
		matched bool
		pattern string
		codes   []string
	}{
		{"empty", "", false, "", nil},
		{"unrelated", "# keep this", false, "", nil},
		{"bare", "# noqa", true, "# noqa", nil},
		{"codes", "# noqa: F401, F403", true, "# noqa", []string{"F401", "F403"}},
		{"upper case", "# NOQA: E501", true, "# noqa", []string{"E501"}},
		{"type ignore", "# type: ignore[attr-defined]", true, "# type: ignore", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Check(tt.comment)
			assert.Equal(t, tt.matched, got.Matched)
			assert.Equal(t, tt.pattern, got.Pattern)
			assert.Equal(t, tt.codes, got.Codes)
		})
	}
}

func TestMatcher_CustomPatterns(t *testing.T) {
	m := New([]string{"# prune: keep"})
	assert.Equal(t, []string{"# prune: keep"}, m.Patterns())
	assert.True(t, m.Check("# Prune: Keep").Matched)
	assert.False(t, m.Check("# noqa").Matched)
}
