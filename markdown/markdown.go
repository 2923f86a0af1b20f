// Package markdown renders markdown text to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling.
package markdown

import "github.com/deploypilotorg/repochat"

// Render parses markdown source and returns ANSI-styled terminal output.
// Prose is word-wrapped to width; code blocks keep their original lines.
// A width of zero or less falls back to 80 columns.
func Render(source string, width int, theme repochat.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return newRenderer(theme).render([]byte(source), width)
}
