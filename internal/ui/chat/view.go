// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vchat-tui/internal/typewriter"
	"github.com/jeranaias/vchat-tui/internal/ui/components"
	"github.com/jeranaias/vchat-tui/internal/ui/styles"
)

// streamCursor is the in-progress marker carried by intermediate
// stream renders.
const streamCursor = typewriter.Cursor

// =============================================================================
// STYLES
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.Purple).
				Bold(true)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	infoTextStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(styles.TextMuted).
				Italic(true)

	linkTitleStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	linkURLStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Underline(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Padding(0, 1)
)

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes the viewport and input to the terminal.
func (m *Model) layout() {
	inputHeight := 3
	headerHeight := 1
	statusHeight := 1

	vpHeight := m.height - inputHeight - headerHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(m.width - 2)
}

// refreshViewport rebuilds the transcript content, optionally pinning
// the view to the bottom.
func (m *Model) refreshViewport(followTail bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if followTail {
		m.viewport.GotoBottom()
	}
	m.scroll.Store(int64(m.viewport.YOffset))
}

// =============================================================================
// RENDERING
// =============================================================================

// renderTranscript renders committed entries plus the live streaming
// block.
func (m *Model) renderTranscript() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var blocks []string
	for _, e := range m.entries {
		blocks = append(blocks, m.renderEntry(e, width))
	}

	if m.streaming != "" {
		blocks = append(blocks, assistantLabelStyle.Render("Assistant")+"\n"+m.streaming)
	} else if m.state == StateStreaming {
		label := m.spin.View() + " thinking"
		if m.videoWait {
			label = m.spin.View() + " preparing video results"
		}
		blocks = append(blocks, placeholderStyle.Render(label))
	}

	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderEntry(e entry, width int) string {
	switch e.kind {
	case entryUser:
		return userLabelStyle.Render("You") + "\n" + e.text

	case entryAssistant:
		return assistantLabelStyle.Render("Assistant") + "\n" +
			components.RenderMarkdownCode(e.text, width)

	case entryLinks:
		var sb strings.Builder
		sb.WriteString(assistantLabelStyle.Render("Videos"))
		for i, link := range e.links {
			label := link
			if i < len(e.titles) && e.titles[i] != nil {
				label = *e.titles[i]
			}
			fmt.Fprintf(&sb, "\n  %d. %s\n     %s",
				i+1, linkTitleStyle.Render(label), linkURLStyle.Render(link))
		}
		return sb.String()

	case entryError:
		return errorTextStyle.Render(e.text)

	case entryInfo:
		return infoTextStyle.Render(e.text)
	}
	return e.text
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	status := "enter to send, esc to abort, ctrl+c to quit"
	if m.state == StateStreaming {
		status = "streaming... esc to abort"
	}

	return headerStyle.Render("vchat") + "\n" +
		m.viewport.View() + "\n" +
		m.input.View() + "\n" +
		statusStyle.Render(status)
}
