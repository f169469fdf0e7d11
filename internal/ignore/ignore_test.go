package ignore

import "testing"

func TestPatternFilter_ExcludesByBaseName(t *testing.T) {
	f := New([]string{"node_modules"})
	if !f.ShouldExclude("node_modules") {
		t.Error("expected exact base-name match to be excluded")
	}
}

func TestPatternFilter_ExcludesByAncestorDirectory(t *testing.T) {
	f := New([]string{"vendor"})
	if !f.ShouldExclude("project/vendor/pkg/file.go") {
		t.Error("expected a path nested under an excluded ancestor directory to be excluded")
	}
}

func TestPatternFilter_ExcludesByGlobSuffix(t *testing.T) {
	f := New([]string{"*.min.js"})
	if !f.ShouldExclude("static/app.min.js") {
		t.Error("expected *.min.js to match app.min.js")
	}
}

func TestPatternFilter_AllowsUnmatchedPath(t *testing.T) {
	f := New([]string{"vendor", "node_modules"})
	if f.ShouldExclude("internal/scanner/scanner.go") {
		t.Error("expected an ordinary source path to not be excluded")
	}
}

func TestNew_FallsBackToDefaultPatterns(t *testing.T) {
	f := New(nil)
	if !f.ShouldExclude(".git") {
		t.Error("expected nil patterns to fall back to DefaultPatterns, which excludes .git")
	}
}
