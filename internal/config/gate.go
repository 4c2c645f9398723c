package config

import (
	"fmt"

	"github.com/gobwas/glob"
)

// ToolGate decides which tool events count as activity. Entries are glob
// patterns, so "mcp__*" matches every MCP tool.
type ToolGate struct {
	skip    []glob.Glob
	capture []glob.Glob
}

// NewToolGate compiles the skip and capture lists.
func NewToolGate(skip, capture []string) (*ToolGate, error) {
	g := &ToolGate{}
	for _, pattern := range skip {
		c, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid skip pattern '%s': %w", pattern, err)
		}
		g.skip = append(g.skip, c)
	}
	for _, pattern := range capture {
		c, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid capture pattern '%s': %w", pattern, err)
		}
		g.capture = append(g.capture, c)
	}
	return g, nil
}

// Allow reports whether name passes the gate. The skip list wins; a non-empty
// capture list then acts as an allow list.
func (g *ToolGate) Allow(name string) bool {
	if name == "" || matchAny(g.skip, name) {
		return false
	}
	if len(g.capture) > 0 {
		return matchAny(g.capture, name)
	}
	return true
}

func matchAny(patterns []glob.Glob, name string) bool {
	for _, p := range patterns {
		if p.Match(name) {
			return true
		}
	}
	return false
}
