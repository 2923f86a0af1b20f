// Package repo manages a per-session scratch clone of a remote repository
// and provides read-only access to its files.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/deploypilotorg/repochat"
)

const (
	// DefaultTruncateBytes is the threshold above which file reads are
	// head-truncated with a marker.
	DefaultTruncateBytes = 100 * 1024

	// DefaultMaxFileBytes is the hard cap. Reads of files above it fail
	// outright instead of returning a truncated head.
	DefaultMaxFileBytes = 5 * 1024 * 1024

	// DefaultCloneTimeout bounds a clone against an unreachable host.
	DefaultCloneTimeout = 2 * time.Minute
)

// defaultIgnorePatterns are always applied when listing files, in addition
// to any caller-supplied patterns. Gitignore syntax.
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"__pycache__/",
	"*.pyc",
	".DS_Store",
}

// Workspace owns one scratch directory holding at most one cloned
// repository at a time. Cloning a new repository removes the previous
// clone first, so file reads never mix content from two analyses.
//
// All methods are safe for concurrent use; a mutex serializes access to
// the active handle.
type Workspace struct {
	mu     sync.Mutex
	base   string // scratch root, owned by this workspace
	handle *repochat.RepositoryHandle

	cloneTimeout  time.Duration
	truncateBytes int64
	maxFileBytes  int64

	// allowLocal permits non-https clone sources. Only settable from
	// tests, which clone fixture repositories from disk.
	allowLocal bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithCloneTimeout bounds the duration of a single clone.
func WithCloneTimeout(d time.Duration) Option {
	return func(w *Workspace) { w.cloneTimeout = d }
}

// WithTruncateBytes sets the threshold above which reads are head-truncated.
func WithTruncateBytes(n int64) Option {
	return func(w *Workspace) { w.truncateBytes = n }
}

// WithMaxFileBytes sets the hard cap above which reads fail.
func WithMaxFileBytes(n int64) Option {
	return func(w *Workspace) { w.maxFileBytes = n }
}

// NewWorkspace creates a Workspace backed by a fresh temporary directory.
func NewWorkspace(opts ...Option) (*Workspace, error) {
	base, err := os.MkdirTemp("", "repochat-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	w := &Workspace{
		base:          base,
		cloneTimeout:  DefaultCloneTimeout,
		truncateBytes: DefaultTruncateBytes,
		maxFileBytes:  DefaultMaxFileBytes,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// AdoptLocal registers an existing local checkout as the active repository
// without cloning. The directory is not owned by the workspace and
// survives Close. Any previously cloned repository is released first.
func (w *Workspace) AdoptLocal(dir, url string) (repochat.RepositoryHandle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return repochat.RepositoryHandle{}, fmt.Errorf("adopting %s: %w", dir, err)
	}
	if !info.IsDir() {
		return repochat.RepositoryHandle{}, fmt.Errorf("adopting %s: not a directory", dir)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handle != nil && strings.HasPrefix(w.handle.Path, w.base+string(filepath.Separator)) {
		if err := os.RemoveAll(w.handle.Path); err != nil {
			return repochat.RepositoryHandle{}, fmt.Errorf("removing previous clone: %w", err)
		}
	}
	h := repochat.RepositoryHandle{URL: url, Path: dir, ClonedAt: time.Now()}
	w.handle = &h
	return h, nil
}

// Handle returns the active repository handle, or false when nothing has
// been cloned yet.
func (w *Workspace) Handle() (repochat.RepositoryHandle, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handle == nil {
		return repochat.RepositoryHandle{}, false
	}
	return *w.handle, true
}

// root returns the active clone directory. Callers must hold w.mu.
func (w *Workspace) root() (string, error) {
	if w.handle == nil {
		return "", repochat.ErrNoRepository
	}
	return w.handle.Path, nil
}

// Close removes the scratch directory and everything in it.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handle = nil
	return os.RemoveAll(w.base)
}
