package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/deploypilotorg/repochat"
	"github.com/deploypilotorg/repochat/bubbletea/textarea"
)

var _ tea.Model = Model{}

// phase is the TUI's top-level state. The user walks the phases in order:
// enter the tool server path, wait for the handshake, enter a repository
// URL, then chat. Ctrl+R returns from chat to the URL prompt.
type phase int

const (
	phaseServerPath phase = iota
	phaseConnecting
	phaseRepoURL
	phaseChat
)

// Model is the Bubble Tea model for the repochat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textarea.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	run     AgentFunc
	connect ConnectFunc
	session *repochat.Session
	theme   repochat.Theme
	styles  Styles
	spin    spinner.Model

	phase  phase
	server ToolServer
	tools  []repochat.Tool

	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	// Streaming correlation state for the current turn. Events carry no
	// block indices, so consecutive deltas of the same kind append to the
	// current block and a kind change starts a new one. Tool call IDs are
	// globally unique and never cleared.
	activeText     *AssistantTextBlock
	activeThinking *ThinkingBlock
	activeToolCall map[string]*ToolCallBlock
	lastKind       streamKind

	running bool
	cancel  context.CancelFunc
	eventCh chan repochat.Event
	doneCh  chan error
	err     error
	ready   bool
	width   int
	height  int
}

type streamKind int

const (
	kindNone streamKind = iota
	kindText
	kindThinking
	kindTool
)

// New creates a new TUI Model. The connect function is invoked when the user
// submits a server path; the run function drives each conversation turn.
func New(run AgentFunc, connect ConnectFunc, session *repochat.Session, theme repochat.Theme) Model {
	ti := textarea.New()
	ti.CheckInputComplete = func(string) bool { return true }
	ti.Focus()

	styles := NewStyles(theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Muted

	m := Model{
		Input:          ti,
		run:            run,
		connect:        connect,
		session:        session,
		theme:          theme,
		styles:         styles,
		spin:           sp,
		blockFocus:     -1,
		activeToolCall: make(map[string]*ToolCallBlock),
	}
	return m.renderSession()
}

// Running returns whether a conversation turn is in flight.
func (m Model) Running() bool { return m.running }

// Connected returns whether a tool server connection is established.
func (m Model) Connected() bool { return m.server != nil }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// SetRunning is a test helper that puts the model in a running chat state.
func SetRunning(m Model) (Model, tea.Cmd) {
	m.phase = phaseChat
	m.running = true
	return m, nil
}

// SetRunningWithCancel is a test helper that puts the model in a running
// chat state with a cancel function.
func SetRunningWithCancel(m Model, cancel func()) (Model, tea.Cmd) {
	m.phase = phaseChat
	m.running = true
	m.cancel = cancel
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.Input.Cursor.BlinkCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case textarea.InputHeightMsg:
		m = m.layout()
		return m, nil

	case spinner.TickMsg:
		if m.phase == phaseConnecting || m.running {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case ConnectedMsg:
		m.server = msg.Server
		m.tools = msg.Tools
		m.err = nil
		m.phase = phaseRepoURL
		cmd := m.Input.Focus()
		return m, cmd

	case ConnectFailedMsg:
		m.err = msg.Err
		m.phase = phaseServerPath
		cmd := m.Input.Focus()
		return m, cmd

	case StreamEventMsg:
		m = m.processEvent(msg.Event)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case AgentDoneMsg:
		m.running = false
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
			m.Viewport.SetContent(m.renderContent())
			m.Viewport.GotoBottom()
		}
		m = m.updateBlockFocus()
		cmd := m.Input.Focus()
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	// Pass remaining messages to sub-components.
	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	switch m.phase {
	case phaseServerPath, phaseConnecting, phaseRepoURL:
		b.WriteString(m.promptTitle())
		b.WriteString("\n\n")
		if m.phase == phaseConnecting {
			b.WriteString(m.spin.View())
			b.WriteString(m.styles.Muted.Render("connecting..."))
		} else {
			b.WriteString(m.Input.View())
		}
		b.WriteString("\n")
		b.WriteString(m.statusLine())

	case phaseChat:
		b.WriteString(m.Viewport.View())
		b.WriteString("\n")
		b.WriteString(m.statusLine())
		b.WriteString("\n")
		b.WriteString(m.Input.View())
	}

	return b.String()
}

func (m Model) promptTitle() string {
	switch m.phase {
	case phaseServerPath, phaseConnecting:
		return m.styles.Accent.Render("repochat") + "\n" +
			m.styles.Muted.Render("Path to the tool server executable:")
	default:
		return m.styles.Accent.Render("repochat") + "\n" +
			m.styles.Muted.Render("GitHub repository URL:")
	}
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, 1)
		m.ready = true
	}
	m = m.layout()
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

// layout recomputes component sizes from the stored window dimensions.
func (m Model) layout() Model {
	statusHeight := 1
	gaps := 2 // newlines between sections
	vpHeight := m.height - m.Input.Height() - statusHeight - gaps
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.Viewport.Width = m.width
	m.Viewport.Height = vpHeight
	m.Input.SetWidth(m.width)
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyCtrlR:
		if m.phase == phaseChat && !m.running {
			return m.resetRepository()
		}
		return m, nil

	case tea.KeyEnter:
		return m.handleEnter()

	case tea.KeyTab:
		if m.phase == phaseChat && !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if m.phase == phaseChat && !m.running {
			m = m.cycleFocusPrev()
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	}

	if m.phase == phaseConnecting || m.running {
		return m, nil
	}

	// When idle, pass keys to both the input (for typing) and viewport
	// (for scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if m.phase == phaseChat && msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.phase == phaseConnecting || m.running {
		return m, nil
	}
	text := strings.TrimSpace(m.Input.Value())
	if text == "" {
		return m, nil
	}

	switch m.phase {
	case phaseServerPath:
		m.Input.Reset()
		m.err = nil
		m.phase = phaseConnecting
		return m, tea.Batch(connectServer(m.connect, text), m.spin.Tick)

	case phaseRepoURL:
		m.Input.Reset()
		m.err = nil
		m.phase = phaseChat
		// The server owns the actual clone; the session records the URL
		// for the status line and persisted transcripts.
		m.session.Repo = &repochat.RepositoryHandle{URL: text, ClonedAt: time.Now()}
		prompt := fmt.Sprintf("Clone %s and give me a brief overview of the repository.", text)
		return m.startTurn(prompt)

	default:
		m.Input.Reset()
		return m.startTurn(text)
	}
}

// resetRepository discards the conversation and returns to the URL prompt.
// The next clone_repository call replaces the server-side scratch clone.
func (m Model) resetRepository() (tea.Model, tea.Cmd) {
	m.session.Messages = nil
	m.session.Repo = nil
	m.session.UpdatedAt = time.Now()
	m.blocks = nil
	m.blockFocus = -1
	m.activeText = nil
	m.activeThinking = nil
	m.activeToolCall = make(map[string]*ToolCallBlock)
	m.lastKind = kindNone
	m.err = nil
	m.phase = phaseRepoURL
	m.Viewport.SetContent("")
	cmd := m.Input.Focus()
	return m, cmd
}

func (m Model) startTurn(text string) (tea.Model, tea.Cmd) {
	m.err = nil

	userMsg := repochat.UserMessage{
		Content:   []repochat.ContentBlock{repochat.TextBlock{Text: text}},
		Timestamp: time.Now(),
	}
	m.session.Messages = append(m.session.Messages, userMsg)

	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	// Reset streaming correlation state for the new turn.
	m.activeText = nil
	m.activeThinking = nil
	m.lastKind = kindNone

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan repochat.Event, 256)
	m.doneCh = make(chan error, 1)
	m.running = true

	m.Input.Blur()

	return m, tea.Batch(
		startAgent(m.run, ctx, m.session, m.server, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
		m.spin.Tick,
	)
}

// renderSession creates blocks from existing session messages, so a
// restored transcript displays when the chat phase is reached.
func (m Model) renderSession() Model {
	for _, msg := range m.session.Messages {
		switch msg := msg.(type) {
		case repochat.UserMessage:
			for _, b := range msg.Content {
				if tb, ok := b.(repochat.TextBlock); ok {
					m.blocks = append(m.blocks, NewUserMessageBlock(tb.Text, m.styles))
				}
			}
		case repochat.AssistantMessage:
			for _, b := range msg.Content {
				switch cb := b.(type) {
				case repochat.TextBlock:
					block := NewAssistantTextBlock(m.theme)
					block.Append(cb.Text)
					m.blocks = append(m.blocks, block)
				case repochat.ThinkingBlock:
					block := NewThinkingBlock(m.styles)
					block.Append(cb.Thinking)
					m.blocks = append(m.blocks, block)
				case repochat.ToolCallBlock:
					block := NewToolCallBlock(cb.Name, cb.ID, m.styles)
					block.FinalizeWithCall(cb)
					block.Resolve()
					m.blocks = append(m.blocks, block)
				}
			}
		case repochat.ToolResultMessage:
			var content strings.Builder
			for _, b := range msg.Content {
				if tb, ok := b.(repochat.TextBlock); ok {
					content.WriteString(tb.Text)
				}
			}
			m.blocks = append(m.blocks, NewToolResultBlock(msg.ToolName, content.String(), msg.IsError, m.styles))
		}
	}
	return m
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString(blockSeparator(m.blocks[i-1], block))
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// blockSeparator returns the separator between two adjacent blocks.
// Consecutive tool activity renders tightly; everything else gets a
// blank line between blocks.
func blockSeparator(prev, curr MessageBlock) string {
	if isToolBlock(prev) && isToolBlock(curr) {
		return "\n"
	}
	return "\n\n"
}

func isToolBlock(b MessageBlock) bool {
	switch b.(type) {
	case *ToolCallBlock, *ToolResultBlock:
		return true
	}
	return false
}

// processEvent routes a streaming event to the appropriate block.
func (m Model) processEvent(evt repochat.Event) Model {
	switch e := evt.(type) {
	case repochat.EventTextDelta:
		if m.lastKind != kindText || m.activeText == nil {
			m.activeText = NewAssistantTextBlock(m.theme)
			m.blocks = append(m.blocks, m.activeText)
			m = m.updateBlockFocus()
		}
		m.activeText.Append(e.Delta)
		m.lastKind = kindText

	case repochat.EventThinkingDelta:
		if m.lastKind != kindThinking || m.activeThinking == nil {
			m.activeThinking = NewThinkingBlock(m.styles)
			m.blocks = append(m.blocks, m.activeThinking)
			m = m.updateBlockFocus()
		}
		m.activeThinking.Append(e.Delta)
		m.lastKind = kindThinking

	case repochat.EventToolCallBegin:
		b := NewToolCallBlock(e.Name, e.ID, m.styles)
		m.blocks = append(m.blocks, b)
		m.activeToolCall[e.ID] = b
		m.lastKind = kindTool
		m = m.updateBlockFocus()

	case repochat.EventToolCallDelta:
		if b, ok := m.activeToolCall[e.ID]; ok {
			b.AppendArgs(e.Delta)
		}

	case repochat.EventToolCallEnd:
		if b, ok := m.activeToolCall[e.Call.ID]; ok {
			b.FinalizeWithCall(e.Call)
		}

	case repochat.EventToolResult:
		if b, ok := m.activeToolCall[e.ID]; ok {
			b.Resolve()
		}
		var content strings.Builder
		if e.Result != nil {
			for _, cb := range e.Result.Content {
				if tb, ok := cb.(repochat.TextBlock); ok {
					content.WriteString(tb.Text)
				}
			}
		}
		isError := e.Result != nil && e.Result.IsError
		m.blocks = append(m.blocks, NewToolResultBlock(e.Name, content.String(), isError, m.styles))
		m.lastKind = kindTool
		m = m.updateBlockFocus()
	}
	return m
}

// updateBlockFocus scans backwards to find the last collapsible block.
// Only the focused block responds to Tab. ShiftTab cycles to the previous
// collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		switch m.blocks[i].(type) {
		case *ThinkingBlock, *ToolCallBlock, *ToolResultBlock:
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	if len(m.blocks) == 0 {
		return m
	}
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		switch m.blocks[idx].(type) {
		case *ThinkingBlock, *ToolCallBlock, *ToolResultBlock:
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	if m.err != nil {
		msg := fmt.Sprintf("Error: %v", m.err)
		if m.width > 0 {
			msg = truncateToWidth(msg, m.width)
		}
		return m.styles.Error.Render(msg)
	}
	switch m.phase {
	case phaseServerPath:
		return m.styles.Muted.Render("Enter to connect, Ctrl+C to quit")
	case phaseConnecting:
		return m.styles.Muted.Render("Performing handshake")
	case phaseRepoURL:
		return m.styles.Muted.Render(fmt.Sprintf("Connected, %d tools. Enter to analyze, Ctrl+C to quit", len(m.tools)))
	}
	if m.running {
		return m.spin.View() + m.styles.Muted.Render("Generating...")
	}
	status := "Enter to send, Ctrl+R for a new repository, Ctrl+C to quit"
	if m.session.Repo != nil {
		status = m.session.Repo.URL + "  " + status
	}
	return m.styles.Muted.Render(status)
}

// connectServer runs the tool server handshake off the render loop.
func connectServer(connect ConnectFunc, path string) tea.Cmd {
	return func() tea.Msg {
		server, err := connect(context.Background(), path)
		if err != nil {
			return ConnectFailedMsg{Err: err}
		}
		return ConnectedMsg{Server: server, Tools: server.Tools()}
	}
}

// startAgent runs the conversation turn in a goroutine and signals completion.
func startAgent(run AgentFunc, ctx context.Context, session *repochat.Session, server ToolServer, eventCh chan<- repochat.Event, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		err := run(ctx, session, server, func(e repochat.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- err
		return nil
	}
}

// listenForEvent waits for the next event from the channel.
// When the channel closes, it reads the error from doneCh and returns AgentDoneMsg.
func listenForEvent(ch <-chan repochat.Event, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			err := <-doneCh
			return AgentDoneMsg{Err: err}
		}
		return StreamEventMsg{Event: evt}
	}
}
