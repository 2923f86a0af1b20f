package repo

import (
	"context"
	"fmt"
	"io/fs"
	osexec "os/exec"
	"path/filepath"
	"strings"
)

// Info summarizes the active clone.
type Info struct {
	URL        string
	Branch     string
	LastCommit string // "<short-hash> <subject>"
	FileCount  int
	TotalBytes int64
}

// Info reports branch, last commit, and on-disk size of the active clone.
// The .git directory is excluded from the size and file counts.
func (w *Workspace) Info(ctx context.Context) (Info, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	root, err := w.root()
	if err != nil {
		return Info{}, err
	}

	branch, err := gitOutput(ctx, root, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return Info{}, err
	}
	lastCommit, err := gitOutput(ctx, root, "log", "-1", "--format=%h %s")
	if err != nil {
		return Info{}, err
	}

	var count int
	var total int64
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		count++
		total += info.Size()
		return nil
	})
	if err != nil {
		return Info{}, fmt.Errorf("sizing clone: %w", err)
	}

	return Info{
		URL:        w.handle.URL,
		Branch:     branch,
		LastCommit: lastCommit,
		FileCount:  count,
		TotalBytes: total,
	}, nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := osexec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}
