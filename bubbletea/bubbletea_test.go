package bubbletea_test

import (
	"context"
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/deploypilotorg/repochat"
	bt "github.com/deploypilotorg/repochat/bubbletea"
	"github.com/deploypilotorg/repochat/bubbletea/textarea"
)

// fakeServer is a ToolServer stub for model tests.
type fakeServer struct {
	tools     []repochat.Tool
	executeFn func(ctx context.Context, name string, args json.RawMessage) (*repochat.ToolResult, error)
	closed    bool
}

func (s *fakeServer) Execute(ctx context.Context, name string, args json.RawMessage) (*repochat.ToolResult, error) {
	if s.executeFn != nil {
		return s.executeFn(ctx, name, args)
	}
	return &repochat.ToolResult{}, nil
}

func (s *fakeServer) Tools() []repochat.Tool { return s.tools }

func (s *fakeServer) Close() error {
	s.closed = true
	return nil
}

// connectTo returns a ConnectFunc that always yields srv.
func connectTo(srv bt.ToolServer) bt.ConnectFunc {
	return func(_ context.Context, _ string) (bt.ToolServer, error) {
		return srv, nil
	}
}

// nopAgent is a mock agent that does nothing.
func nopAgent(_ context.Context, _ *repochat.Session, _ bt.ToolServer, _ func(repochat.Event)) error {
	return nil
}

// newModel creates a model with a stub connector and sends a WindowSizeMsg
// to initialize the viewport.
func newModel(t *testing.T, run bt.AgentFunc, width, height int) bt.Model {
	t.Helper()
	session := &repochat.Session{}
	theme := repochat.DefaultTheme()
	m := bt.New(run, connectTo(&fakeServer{}), session, theme)
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// initModel creates a model in the idle chat phase. The repository URL turn
// is completed synchronously via AgentDoneMsg so no agent goroutine runs.
func initModel(t *testing.T, run bt.AgentFunc) bt.Model {
	t.Helper()
	return initModelWithSize(t, run, 80, 24)
}

// initModelWithSize creates an idle chat-phase model with a custom terminal size.
func initModelWithSize(t *testing.T, run bt.AgentFunc, width, height int) bt.Model {
	t.Helper()
	m := newModel(t, run, width, height)
	m = updateModel(t, m, bt.ConnectedMsg{Server: &fakeServer{}})
	m.Input = typeInputString(t, m.Input, "https://github.com/octocat/hello-world")
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.Running())
	m = updateModel(t, m, bt.AgentDoneMsg{})
	require.False(t, m.Running())
	return m
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

func typeInputString(t *testing.T, ta textarea.Model, s string) textarea.Model {
	t.Helper()
	for _, r := range s {
		ta, _ = ta.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return ta
}
