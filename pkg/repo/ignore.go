package repo

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreFileName is the per-repository ignore file, one gitignore-style
// pattern per line.
const ignoreFileName = ".fitignore"

// IgnoreChecker decides whether a working-tree path is excluded from add
// walks and status reporting.
type IgnoreChecker struct {
	matcher *gitignore.GitIgnore
}

// NewIgnoreChecker compiles the ignore rules for a repository root. The
// metadata directories .fit and .git are always excluded, even when a
// .fitignore negation would re-include them; user patterns come from
// .fitignore when present.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	// Forced rules are compiled after the user file so they win.
	forced := []string{".fit", ".git"}

	ignorePath := filepath.Join(repoRoot, ignoreFileName)
	if _, err := os.Stat(ignorePath); err == nil {
		if m, err := gitignore.CompileIgnoreFileAndLines(ignorePath, forced...); err == nil {
			return &IgnoreChecker{matcher: m}
		}
	}
	return &IgnoreChecker{matcher: gitignore.CompileIgnoreLines(forced...)}
}

// IsIgnored reports whether the repo-relative path matches an ignore rule.
// Directory paths match their own name and everything beneath them.
func (ic *IgnoreChecker) IsIgnored(path string) bool {
	if ic.matcher == nil {
		return false
	}
	return ic.matcher.MatchesPath(filepath.ToSlash(path))
}
