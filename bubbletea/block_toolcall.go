package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deploypilotorg/repochat"
)

var _ MessageBlock = (*ToolCallBlock)(nil)

// ToolCallBlock renders a tool call with a collapsible toggle. While the
// call is awaiting its result it shows a pending marker.
type ToolCallBlock struct {
	name      string
	id        string
	args      strings.Builder
	pending   bool
	collapsed bool
	styles    Styles
}

// NewToolCallBlock creates a ToolCallBlock that starts collapsed and pending.
func NewToolCallBlock(name, id string, styles Styles) *ToolCallBlock {
	return &ToolCallBlock{name: name, id: id, pending: true, collapsed: true, styles: styles}
}

// ID returns the tool call ID for event correlation.
func (b *ToolCallBlock) ID() string { return b.id }

// AppendArgs adds a tool call argument delta.
func (b *ToolCallBlock) AppendArgs(text string) {
	b.args.WriteString(text)
}

// FinalizeWithCall applies the completed tool call, including arguments
// from EventToolCallEnd. This handles providers like Gemini that emit
// begin+end without intermediate deltas.
func (b *ToolCallBlock) FinalizeWithCall(call repochat.ToolCallBlock) {
	if b.args.Len() == 0 && len(call.Arguments) > 0 {
		b.args.Write(call.Arguments)
	}
}

// Resolve clears the pending marker once the tool's result has arrived.
func (b *ToolCallBlock) Resolve() {
	b.pending = false
}

func (b *ToolCallBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ToolCallBlock) View(width int) string {
	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	header := b.styles.ToolCall.Render(indicator + " " + b.name)
	if b.pending {
		header += " " + b.styles.Muted.Render("…")
	}
	content := header
	if !b.collapsed && b.args.Len() > 0 {
		content = header + "\n" + b.styles.Muted.Render(b.args.String())
	}
	return b.styles.ToolBg.
		Width(width).
		Render(content)
}
