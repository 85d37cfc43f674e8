// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repl provides the line-oriented interactive chat client.
//
// It is the fallback surface for dumb terminals and piped sessions; the
// richer alternative lives in the ui package. Both drive the same
// orchestrator through the Renderer interface.
package repl

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vchat-tui/internal/typewriter"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "39"}).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"}).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "203"}).
			Bold(true)

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "61", Dark: "111"}).
			Underline(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "243"})
)

// =============================================================================
// PLAIN RENDERER
// =============================================================================

// PlainRenderer writes the streaming conversation to a line-oriented
// terminal. The typewriter callback delivers cumulative text, so the
// renderer keeps the previously printed prefix and writes only the new
// suffix, producing an in-place typing effect without cursor control.
type PlainRenderer struct {
	mu   sync.Mutex
	out  io.Writer
	prev string
}

// NewPlainRenderer creates a renderer writing to out.
func NewPlainRenderer(out io.Writer) *PlainRenderer {
	return &PlainRenderer{out: out}
}

// ShowUserMessage echoes the submitted prompt.
func (r *PlainRenderer) ShowUserMessage(prompt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prev = ""
	fmt.Fprintf(r.out, "%s %s\n\n", userStyle.Render("You:"), prompt)
}

// ShowPlaceholder signals whether the reply is a link payload.
func (r *PlainRenderer) ShowPlaceholder(video bool) {
	if !video {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, dimStyle.Render("[preparing video results]"))
}

// AppendAssistantFragment prints the unseen suffix of the cumulative
// text. A cumulative string that no longer extends the previous one
// (only the final cursor-stripped render does this) is ignored unless
// it carries new text.
func (r *PlainRenderer) AppendAssistantFragment(text string) {
	text = strings.TrimSuffix(text, typewriter.Cursor)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !strings.HasPrefix(text, r.prev) {
		// Restart from a fresh line rather than interleaving.
		fmt.Fprintf(r.out, "\n%s", text)
		r.prev = text
		return
	}
	if suffix := text[len(r.prev):]; suffix != "" {
		fmt.Fprint(r.out, suffix)
		r.prev = text
	}
}

// ShowError prints the localized failure message.
func (r *PlainRenderer) ShowError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\n%s %s\n", errorStyle.Render("[Error]"), message)
}

// ShowLinks prints the resolved link list. Failed title lookups fall
// back to the bare URL.
func (r *PlainRenderer) ShowLinks(links []string, titles []*string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	for i, link := range links {
		label := link
		if i < len(titles) && titles[i] != nil {
			label = *titles[i]
		}
		fmt.Fprintf(r.out, "  %d. %s\n     %s\n", i+1, label, linkStyle.Render(link))
	}
}

// ScrollPosition is meaningless for a line renderer.
func (r *PlainRenderer) ScrollPosition() int {
	return 0
}

// FinishResponse terminates the streaming block with a blank line.
func (r *PlainRenderer) FinishResponse() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, "\n\n")
	r.prev = ""
}
