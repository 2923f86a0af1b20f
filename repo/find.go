package repo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/deploypilotorg/repochat"
)

// FindFiles returns the files of the active clone matching pattern, a
// doublestar glob evaluated against slash-separated relative paths.
// Results are sorted. The .git directory is never matched.
func (w *Workspace) FindFiles(ctx context.Context, pattern string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	root, err := w.root()
	if err != nil {
		return nil, err
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, repochat.ErrValidation)
	}

	fsys := os.DirFS(root)
	var matches []string
	err = doublestar.GlobWalk(fsys, pattern, func(p string, d fs.DirEntry) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if p == ".git" || strings.HasPrefix(p, ".git/") {
			return nil
		}
		matches = append(matches, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", pattern, err)
	}

	sort.Strings(matches)
	return matches, nil
}
