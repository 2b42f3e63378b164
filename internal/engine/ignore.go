package engine

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Ignorer answers whether a root-relative path is excluded by
// `.gitignore`. It is compiled once at startup (spec §9: "Process-wide
// .gitignore") and shared read-only by every request thereafter.
type Ignorer struct {
	matcher *gitignore.GitIgnore
}

// LoadIgnorer compiles `<root>/.gitignore`. If the file is absent, the
// returned Ignorer always answers false, matching spec §9's
// always-false fallback.
func LoadIgnorer(root string) (*Ignorer, error) {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Ignorer{}, nil
	}
	m, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	return &Ignorer{matcher: m}, nil
}

// MatchesPath reports whether relPath (slash-separated, relative to
// root) is ignored.
func (ig *Ignorer) MatchesPath(relPath string) bool {
	if ig == nil || ig.matcher == nil {
		return false
	}
	return ig.matcher.MatchesPath(relPath)
}
