// Package ignore filters paths out of a scan using shell-glob patterns
// matched against path components, the same semantics the teacher's
// indexer and watcher used via util.MatchPattern, generalized into a
// standalone, directly testable collaborator.
package ignore

import (
	"path/filepath"

	"github.com/heefoo/codeweave/internal/util"
)

// Filter decides whether a path should be excluded from a scan.
type Filter interface {
	ShouldExclude(path string) bool
}

// PatternFilter excludes a path when any of its patterns matches either
// the path's base name or any ancestor directory/file name.
type PatternFilter struct {
	patterns []string
}

// New builds a PatternFilter from explicit patterns. A nil or empty slice
// falls back to DefaultPatterns.
func New(patterns []string) *PatternFilter {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &PatternFilter{patterns: patterns}
}

// DefaultPatterns mirrors the teacher's DefaultExcludePatterns.
func DefaultPatterns() []string {
	return []string{
		".git",
		".svn",
		".hg",
		"node_modules",
		"vendor",
		"__pycache__",
		".venv",
		"venv",
		"target",
		"build",
		"dist",
		".idea",
		".vscode",
		"*.min.js",
		"*.min.css",
		"*.map",
		".codeloom",
		".codeweave",
	}
}

func (f *PatternFilter) ShouldExclude(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range f.patterns {
		if util.MatchPattern(pattern, name) {
			return true
		}
		current := path
		for current != "." && current != string(filepath.Separator) && current != "" {
			base := filepath.Base(current)
			if util.MatchPattern(pattern, base) {
				return true
			}
			parent := filepath.Dir(current)
			if parent == current {
				break
			}
			current = parent
		}
	}
	return false
}
