package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/deploypilotorg/repochat"
	bt "github.com/deploypilotorg/repochat/bubbletea"
)

func TestToolResultBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("success result starts collapsed with check mark", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(repochat.DefaultTheme())
		block := bt.NewToolResultBlock("list_files", "main.go\ngo.mod", false, styles)
		view := block.View(80)
		assert.Contains(t, view, "▶")
		assert.Contains(t, view, "list_files")
		assert.Contains(t, view, "✓")
		assert.NotContains(t, view, "go.mod")
	})

	t.Run("collapsed success shows first line preview", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(repochat.DefaultTheme())
		block := bt.NewToolResultBlock("read_file", "package main\nfunc main() {}", false, styles)
		view := block.View(80)
		assert.Contains(t, view, "package main")
		assert.NotContains(t, view, "func main")
	})

	t.Run("long preview is truncated by display width", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(repochat.DefaultTheme())
		content := strings.Repeat("x", 200)
		block := bt.NewToolResultBlock("read_file", content, false, styles)
		view := ansi.Strip(block.View(200))
		assert.Contains(t, view, "…")
		assert.NotContains(t, view, strings.Repeat("x", 61))
	})

	t.Run("error result starts expanded with cross mark", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(repochat.DefaultTheme())
		block := bt.NewToolResultBlock("read_file", "path escapes repository: ../../etc/passwd", true, styles)
		view := block.View(80)
		assert.Contains(t, view, "▼")
		assert.Contains(t, view, "✗")
		assert.Contains(t, view, "etc/passwd")
	})

	t.Run("error result ignores toggle", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(repochat.DefaultTheme())
		block := bt.NewToolResultBlock("read_file", "file not found: missing.go", true, styles)
		updated, _ := block.Update(bt.ToggleMsg{})
		view := updated.(*bt.ToolResultBlock).View(80)
		assert.Contains(t, view, "▼")
		assert.Contains(t, view, "missing.go")
	})

	t.Run("toggle expands success result", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(repochat.DefaultTheme())
		block := bt.NewToolResultBlock("list_files", "main.go\ngo.mod", false, styles)
		updated, _ := block.Update(bt.ToggleMsg{})
		block = updated.(*bt.ToolResultBlock)
		view := block.View(80)
		assert.Contains(t, view, "▼")
		assert.Contains(t, view, "go.mod")
		// Toggle back.
		updated, _ = block.Update(bt.ToggleMsg{})
		view = updated.(*bt.ToolResultBlock).View(80)
		assert.NotContains(t, view, "go.mod")
	})

	t.Run("IsError reports error state", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(repochat.DefaultTheme())
		assert.False(t, bt.NewToolResultBlock("t", "ok", false, styles).IsError())
		assert.True(t, bt.NewToolResultBlock("t", "bad", true, styles).IsError())
	})

	t.Run("empty content renders header only", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(repochat.DefaultTheme())
		block := bt.NewToolResultBlock("clone_repository", "", false, styles)
		view := block.View(80)
		assert.Contains(t, view, "clone_repository")
		assert.Contains(t, view, "✓")
	})
}
