// Package bubbletea provides the Bubble Tea TUI for chatting about a
// repository. The user points it at a tool server binary, connects, then
// supplies a repository URL and chats with the assistant.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deploypilotorg/repochat"
)

// ToolServer is the frontend's view of a connected tool server: it executes
// tools, lists their definitions, and can be shut down.
type ToolServer interface {
	repochat.ToolExecutor
	Tools() []repochat.Tool
	Close() error
}

// ConnectFunc launches and connects to the tool server at path. It blocks
// until the handshake completes or the context is cancelled.
type ConnectFunc func(ctx context.Context, path string) (ToolServer, error)

// AgentFunc runs one conversation turn. The onEvent callback is called for
// each streaming event. The function blocks until the turn completes or the
// context is cancelled.
type AgentFunc func(ctx context.Context, session *repochat.Session, server ToolServer, onEvent func(repochat.Event)) error

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown; when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// ConnectedMsg signals a successful tool server connection.
type ConnectedMsg struct {
	Server ToolServer
	Tools  []repochat.Tool
}

// ConnectFailedMsg signals a failed tool server connection.
type ConnectFailedMsg struct {
	Err error
}

// StreamEventMsg wraps a streaming event for delivery to the Bubble Tea model.
type StreamEventMsg struct {
	Event repochat.Event
}

// AgentDoneMsg signals that the conversation turn has completed.
type AgentDoneMsg struct {
	Err error
}
