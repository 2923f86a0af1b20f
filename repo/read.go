package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/deploypilotorg/repochat"
)

// ReadResult is the outcome of reading one repository file.
type ReadResult struct {
	Path       string // slash-separated path relative to the repository root
	Content    string
	Truncated  bool
	TotalBytes int64
}

// ReadFile returns the contents of the file at rel, a slash-separated path
// relative to the repository root. Paths that resolve outside the root,
// directly or through a symlink, are rejected. Files above the truncation
// threshold return only their head, cut at a line boundary, with a marker
// appended. Files above the hard cap fail outright.
func (w *Workspace) ReadFile(ctx context.Context, rel string) (ReadResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	root, err := w.root()
	if err != nil {
		return ReadResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ReadResult{}, err
	}

	abs, err := resolveInside(root, rel)
	if err != nil {
		return ReadResult{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ReadResult{}, fmt.Errorf("%s: %w", rel, repochat.ErrFileNotFound)
		}
		return ReadResult{}, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return ReadResult{}, fmt.Errorf("%s is a directory: %w", rel, repochat.ErrFileNotFound)
	}
	if info.Size() > w.maxFileBytes {
		return ReadResult{}, fmt.Errorf("%s is %d bytes (limit %d): %w", rel, info.Size(), w.maxFileBytes, repochat.ErrFileTooLarge)
	}

	f, err := os.Open(abs)
	if err != nil {
		return ReadResult{}, fmt.Errorf("open %s: %w", rel, err)
	}
	defer f.Close()

	if info.Size() <= w.truncateBytes {
		data, err := io.ReadAll(f)
		if err != nil {
			return ReadResult{}, fmt.Errorf("read %s: %w", rel, err)
		}
		return ReadResult{
			Path:       filepath.ToSlash(rel),
			Content:    string(data),
			TotalBytes: info.Size(),
		}, nil
	}

	head := make([]byte, w.truncateBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return ReadResult{}, fmt.Errorf("read %s: %w", rel, err)
	}
	tr := TruncateHead(string(head[:n]))
	return ReadResult{
		Path:       filepath.ToSlash(rel),
		Content:    tr + fmt.Sprintf("\n... [truncated: showing first %d of %d bytes]\n", len(tr), info.Size()),
		Truncated:  true,
		TotalBytes: info.Size(),
	}, nil
}

// resolveInside joins rel onto root and verifies the result stays inside
// root. Both the lexical path and the symlink-resolved path must be
// contained; either escaping is a path-escape error.
func resolveInside(root, rel string) (string, error) {
	rel = filepath.FromSlash(rel)
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%q: %w", rel, repochat.ErrPathEscape)
	}
	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", rel, repochat.ErrPathEscape)
	}

	abs := filepath.Join(root, cleaned)

	// A symlink inside the clone may still point outside of it.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", rel, repochat.ErrFileNotFound)
		}
		return "", fmt.Errorf("resolving %s: %w", rel, err)
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolving repository root: %w", err)
	}
	if resolved != resolvedRoot && !strings.HasPrefix(resolved, resolvedRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", rel, repochat.ErrPathEscape)
	}
	return abs, nil
}
