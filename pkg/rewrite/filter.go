package rewrite

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Filter decides whether a candidate text should be rewritten.
type Filter interface {
	Allow(text string) bool
}

// TextFilter rejects texts that match any of its deny patterns. Patterns use
// glob syntax and are matched against the whitespace-trimmed text.
type TextFilter struct {
	denied []glob.Glob
}

// NewTextFilter compiles the deny patterns.
func NewTextFilter(denied []string) (*TextFilter, error) {
	f := &TextFilter{}
	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
		f.denied = append(f.denied, g)
	}
	return f, nil
}

// Allow returns false if text matches a deny pattern. A nil filter allows
// everything.
func (f *TextFilter) Allow(text string) bool {
	if f == nil {
		return true
	}
	text = strings.TrimSpace(text)
	for _, g := range f.denied {
		if g.Match(text) {
			return false
		}
	}
	return true
}
