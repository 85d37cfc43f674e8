// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/vchat-tui/internal/commands"
	"github.com/jeranaias/vchat-tui/internal/config"
	"github.com/jeranaias/vchat-tui/internal/orchestrator"
)

// =============================================================================
// INPUT
// =============================================================================

// Input wraps liner with persistent history and slash-command
// completion.
type Input struct {
	line        *liner.State
	historyFile string
}

// NewInput creates the line editor. History is stored next to the
// config file.
func NewInput(registry *commands.Registry) *Input {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		if !strings.HasPrefix(partial, "/") {
			return nil
		}
		return registry.Complete(partial)
	})

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	in := &Input{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	in.loadHistory()
	return in
}

func (in *Input) loadHistory() {
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
}

// Read reads one line with the given prompt, recording non-empty input
// in the history.
func (in *Input) Read(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// Close persists history and restores the terminal.
func (in *Input) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// MARKDOWN
// =============================================================================

// newMarkdownRenderer builds a glamour renderer sized to the terminal.
// Returns nil when the output is not a color-capable terminal; callers
// then print the raw text.
func newMarkdownRenderer() *glamour.TermRenderer {
	if termenv.ColorProfile() == termenv.Ascii {
		return nil
	}
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// =============================================================================
// REPL LOOP
// =============================================================================

// REPL is the interactive line-oriented chat loop.
type REPL struct {
	orch     *orchestrator.Orchestrator
	registry *commands.Registry
	cmdCtx   *commands.Context
	renderer *PlainRenderer
	markdown *glamour.TermRenderer
}

// New creates a REPL around an orchestrator and command context. The
// context's Session is the active conversation and is replaced in
// place by /new and /delete.
func New(orch *orchestrator.Orchestrator, registry *commands.Registry, cmdCtx *commands.Context, renderer *PlainRenderer) *REPL {
	return &REPL{
		orch:     orch,
		registry: registry,
		cmdCtx:   cmdCtx,
		renderer: renderer,
		markdown: newMarkdownRenderer(),
	}
}

// Run drives the input loop until /quit, EOF, or context cancellation.
func (r *REPL) Run(ctx context.Context) error {
	input := NewInput(r.registry)
	defer input.Close()

	quit := make(chan struct{})
	var quitOnce sync.Once
	r.cmdCtx.Quit = func() {
		quitOnce.Do(func() { close(quit) })
	}

	// Ctrl+C during streaming aborts the in-flight request; at the
	// prompt liner surfaces it as ErrPromptAborted instead.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			r.cmdCtx.Session.Abort()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-quit:
			return nil
		default:
		}

		line, err := input.Read(promptStyle.Render("vchat> "))
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Println()
				continue
			}
			// EOF ends the session.
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		output, handled, err := r.registry.Dispatch(r.cmdCtx, line)
		if handled {
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
				continue
			}
			if output != "" {
				fmt.Println(output)
			}
			select {
			case <-quit:
				return nil
			default:
			}
			continue
		}

		r.send(ctx, line)
	}
}

// send runs one prompt through the orchestrator and post-renders the
// completed reply as markdown.
func (r *REPL) send(ctx context.Context, prompt string) {
	result, err := r.orch.Send(ctx, r.cmdCtx.Session, prompt)
	if err != nil {
		if errors.Is(err, orchestrator.ErrBusy) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("[Error] a request is already in flight"))
			return
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		return
	}
	r.renderer.FinishResponse()

	// The typed-out plain text stays on screen for aborted and failed
	// replies; completed markdown gets one formatted re-render.
	if result.State == orchestrator.StateCompleted && r.markdown != nil && looksLikeMarkdown(result.Text) {
		if pretty, err := r.markdown.Render(result.Text); err == nil {
			fmt.Print(pretty)
		}
	}
}

// looksLikeMarkdown reports whether a formatted re-render would add
// anything over the already printed plain text.
func looksLikeMarkdown(text string) bool {
	for _, marker := range []string{"```", "**", "# ", "- ", "* ", "`"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
