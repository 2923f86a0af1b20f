package repo

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"
)

// ListFiles enumerates the files of the active clone as sorted,
// slash-separated paths relative to the repository root. The default
// ignore set always applies; extraPatterns adds caller-supplied gitignore
// lines on top of it.
func (w *Workspace) ListFiles(ctx context.Context, extraPatterns []string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	root, err := w.root()
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(defaultIgnorePatterns)+len(extraPatterns))
	lines = append(lines, defaultIgnorePatterns...)
	lines = append(lines, extraPatterns...)
	matcher := ignore.CompileIgnoreLines(lines...)

	var paths []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if matcher.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}
