package repo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deploypilotorg/repochat/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_Handle(t *testing.T) {
	t.Parallel()

	w, err := repo.NewWorkspace()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, ok := w.Handle()
	assert.False(t, ok, "fresh workspace has no repository")

	dir := t.TempDir()
	h, err := w.AdoptLocal(dir, "https://github.com/example/demo")
	require.NoError(t, err)
	assert.Equal(t, dir, h.Path)
	assert.Equal(t, "https://github.com/example/demo", h.URL)
	assert.False(t, h.ClonedAt.IsZero())

	got, ok := w.Handle()
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestWorkspace_AdoptLocal_RejectsNonDirectory(t *testing.T) {
	t.Parallel()

	w, err := repo.NewWorkspace()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	f := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

	_, err = w.AdoptLocal(f, "https://github.com/example/demo")
	assert.Error(t, err)

	_, err = w.AdoptLocal(filepath.Join(t.TempDir(), "missing"), "https://github.com/example/demo")
	assert.Error(t, err)
}

func TestWorkspace_Close_RemovesScratch(t *testing.T) {
	t.Parallel()

	w, err := repo.NewWorkspace()
	require.NoError(t, err)

	adopted := t.TempDir()
	_, err = w.AdoptLocal(adopted, "https://github.com/example/demo")
	require.NoError(t, err)

	require.NoError(t, w.Close())

	_, ok := w.Handle()
	assert.False(t, ok, "Close clears the active handle")
	_, err = os.Stat(adopted)
	assert.NoError(t, err, "adopted directories are not owned and must survive Close")
}
