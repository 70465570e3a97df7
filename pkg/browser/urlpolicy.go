package browser

import (
	"fmt"

	"github.com/gobwas/glob"
)

// URLPolicy restricts navigation to URLs matching at least one glob pattern.
// A policy without patterns allows everything.
type URLPolicy struct {
	patterns []string
	globs    []glob.Glob
}

// NewURLPolicy compiles the allow-list patterns.
func NewURLPolicy(patterns []string) (*URLPolicy, error) {
	p := &URLPolicy{patterns: patterns}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern %q: %w", pattern, err)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

// Allowed reports whether url may be navigated to.
func (p *URLPolicy) Allowed(url string) bool {
	if p == nil || len(p.globs) == 0 {
		return true
	}
	for _, g := range p.globs {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// Patterns returns the configured patterns.
func (p *URLPolicy) Patterns() []string {
	if p == nil {
		return nil
	}
	return p.patterns
}
