package repo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/deploypilotorg/repochat"
)

// ValidateURL checks that raw is an https URL naming an owner/repo pair on
// a known git host. It returns the normalized URL and the repository name.
func ValidateURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("%q: %w", raw, repochat.ErrInvalidURL)
	}
	if u.Scheme != "https" {
		return "", "", fmt.Errorf("scheme %q is not https: %w", u.Scheme, repochat.ErrInvalidURL)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("%q has no host: %w", raw, repochat.ErrInvalidURL)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%q does not name owner/repo: %w", raw, repochat.ErrInvalidURL)
	}
	name := strings.TrimSuffix(parts[1], ".git")
	if name == "" {
		return "", "", fmt.Errorf("%q does not name owner/repo: %w", raw, repochat.ErrInvalidURL)
	}
	normalized := fmt.Sprintf("https://%s/%s/%s", u.Host, parts[0], parts[1])
	return normalized, name, nil
}

// cloneSource resolves a clone request to a git source and a directory
// name. Normally every source must pass ValidateURL; workspaces opened
// with the local-source test option also accept file paths and file://
// URLs so fixtures can be cloned from disk.
func (w *Workspace) cloneSource(raw string) (string, string, error) {
	if w.allowLocal {
		trimmed := strings.TrimSpace(raw)
		if !strings.HasPrefix(trimmed, "https://") {
			name := strings.TrimSuffix(filepath.Base(strings.TrimSuffix(trimmed, "/")), ".git")
			return trimmed, name, nil
		}
	}
	return ValidateURL(raw)
}

// Clone fetches the repository at rawURL into the scratch directory,
// replacing any previous clone. It never prompts for credentials; a
// repository that requires authentication fails with a distinct error.
func (w *Workspace) Clone(ctx context.Context, rawURL string) (repochat.RepositoryHandle, error) {
	normalized, name, err := w.cloneSource(rawURL)
	if err != nil {
		return repochat.RepositoryHandle{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Release the previous clone before fetching a new one so stale files
	// never leak between analyses.
	if w.handle != nil {
		if err := os.RemoveAll(w.handle.Path); err != nil {
			return repochat.RepositoryHandle{}, fmt.Errorf("removing previous clone: %w", err)
		}
		w.handle = nil
	}

	dest := filepath.Join(w.base, name)

	ctx, cancel := context.WithTimeout(ctx, w.cloneTimeout)
	defer cancel()

	cmd := osexec.CommandContext(ctx, "git", "clone", "--depth", "1", normalized, dest)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	clog.InfoContextf(ctx, "cloning %s", normalized)
	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		_ = os.RemoveAll(dest)
		if ctx.Err() != nil {
			return repochat.RepositoryHandle{}, fmt.Errorf("clone timed out after %s: %w", w.cloneTimeout, repochat.ErrCloneFailed)
		}
		clog.WarnContextf(ctx, "clone of %s failed: %s", normalized, firstLine(string(out)))
		return repochat.RepositoryHandle{}, classifyCloneFailure(string(out))
	}

	h := repochat.RepositoryHandle{
		URL:      normalized,
		Path:     dest,
		ClonedAt: time.Now(),
	}
	w.handle = &h
	return h, nil
}

// classifyCloneFailure maps git's stderr to an error kind. Auth prompts
// are disabled during clone, so a private repository surfaces as an
// authentication failure rather than a hang.
func classifyCloneFailure(output string) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "could not read username"),
		strings.Contains(lower, "authentication failed"),
		strings.Contains(lower, "terminal prompts disabled"):
		return fmt.Errorf("%s: %w", firstLine(output), repochat.ErrPrivateRepository)
	case strings.Contains(lower, "repository not found"),
		strings.Contains(lower, "not found"):
		// GitHub reports private repositories identically to nonexistent
		// ones for anonymous clients.
		return fmt.Errorf("%s: %w", firstLine(output), repochat.ErrPrivateRepository)
	case strings.Contains(lower, "no space left"):
		return fmt.Errorf("disk full: %s: %w", firstLine(output), repochat.ErrCloneFailed)
	default:
		return fmt.Errorf("%s: %w", firstLine(output), repochat.ErrCloneFailed)
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "git clone failed"
}
