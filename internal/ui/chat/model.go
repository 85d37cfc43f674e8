// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vchat-tui/internal/commands"
	"github.com/jeranaias/vchat-tui/internal/orchestrator"
	"github.com/jeranaias/vchat-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a streaming response
)

// entryKind tags transcript entries for rendering.
type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryLinks
	entryError
	entryInfo
)

// entry is one rendered block in the transcript view.
type entry struct {
	kind   entryKind
	text   string
	links  []string
	titles []*string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State

	width  int
	height int
	ready  bool

	// Transcript already committed to display, plus the live streaming
	// text which is re-rendered on every update.
	entries   []entry
	streaming string
	videoWait bool

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	orch     *orchestrator.Orchestrator
	registry *commands.Registry
	cmdCtx   *commands.Context

	// send posts messages from the orchestrator goroutine; wired by Run
	// once the program exists.
	send   func(msg any)
	scroll *atomic.Int64
}

// NewModel creates the chat model. The orchestrator and send hook must
// be set via SetOrchestrator and SetSend before the first prompt is
// submitted.
func NewModel(registry *commands.Registry, cmdCtx *commands.Context) *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask something, or /help"
	ta.Prompt = "┃ "
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Amber)

	return &Model{
		input:    ta,
		spin:     sp,
		registry: registry,
		cmdCtx:   cmdCtx,
		scroll:   &atomic.Int64{},
	}
}

// SetOrchestrator wires the request orchestrator.
func (m *Model) SetOrchestrator(orch *orchestrator.Orchestrator) {
	m.orch = orch
}

// SetSend wires the program's message injection hook.
func (m *Model) SetSend(send func(msg any)) {
	m.send = send
}

// Scroll exposes the shared viewport offset for the Renderer.
func (m *Model) Scroll() *atomic.Int64 {
	return m.scroll
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewport(false)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEsc:
			if m.state == StateStreaming {
				m.cmdCtx.Session.Abort()
			}
			return m, nil

		case tea.KeyEnter:
			if m.state == StateReady {
				line := strings.TrimSpace(m.input.Value())
				if line != "" {
					m.input.Reset()
					return m, m.submit(line)
				}
			}
			return m, nil
		}

	case UserMsg:
		m.entries = append(m.entries, entry{kind: entryUser, text: msg.Text})
		m.streaming = ""
		m.videoWait = false
		m.refreshViewport(true)

	case StreamTextMsg:
		m.streaming = msg.Text
		m.refreshViewport(true)

	case PlaceholderMsg:
		m.videoWait = msg.Video
		m.refreshViewport(true)

	case StreamErrorMsg:
		m.entries = append(m.entries, entry{kind: entryError, text: msg.Message})
		m.streaming = ""
		m.refreshViewport(true)

	case LinksMsg:
		// Links follow the finalized text, so commit the streamed reply
		// first to keep transcript order.
		m.commitStreaming()
		m.entries = append(m.entries, entry{kind: entryLinks, links: msg.Links, titles: msg.Titles})
		m.refreshViewport(true)

	case DoneMsg:
		m.finishStream(msg)
		m.refreshViewport(true)

	case CommandOutputMsg:
		if msg.Err != nil {
			m.entries = append(m.entries, entry{kind: entryError, text: msg.Err.Error()})
		} else if msg.Output != "" {
			m.entries = append(m.entries, entry{kind: entryInfo, text: msg.Output})
		}
		m.refreshViewport(true)

	case QuitRequestedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.state == StateStreaming {
			cmds = append(cmds, cmd)
		}
	}

	if m.state == StateReady {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.scroll.Store(int64(m.viewport.YOffset))
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit dispatches a slash command inline or launches the orchestrator
// on its own goroutine for a prompt.
func (m *Model) submit(line string) tea.Cmd {
	if commands.IsCommand(line) {
		output, _, err := m.registry.Dispatch(m.cmdCtx, line)
		return func() tea.Msg {
			return CommandOutputMsg{Output: output, Err: err}
		}
	}

	m.state = StateStreaming
	sess := m.cmdCtx.Session
	orch := m.orch
	send := m.send
	go func() {
		result, err := orch.Send(context.Background(), sess, line)
		send(DoneMsg{Result: result, Err: err})
	}()
	return m.spin.Tick
}

// commitStreaming moves the live streamed text into the transcript.
func (m *Model) commitStreaming() {
	text := strings.TrimSuffix(m.streaming, streamCursor)
	if strings.TrimSpace(text) != "" {
		m.entries = append(m.entries, entry{kind: entryAssistant, text: text})
	}
	m.streaming = ""
}

// finishStream returns the view to the ready state. Completed and
// aborted text is committed; a failed reply already produced its error
// entry through ShowError, so its partial text is discarded.
func (m *Model) finishStream(msg DoneMsg) {
	m.state = StateReady
	m.videoWait = false
	m.input.Focus()

	if msg.Err != nil {
		m.entries = append(m.entries, entry{kind: entryError, text: msg.Err.Error()})
		m.streaming = ""
		return
	}
	switch msg.Result.State {
	case orchestrator.StateCompleted, orchestrator.StateAborted:
		m.commitStreaming()
	default:
		m.streaming = ""
	}
}
