// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui wires the Bubble Tea chat view to the orchestrator.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vchat-tui/internal/commands"
	"github.com/jeranaias/vchat-tui/internal/orchestrator"
	"github.com/jeranaias/vchat-tui/internal/ui/chat"
)

// Run starts the full-screen chat program and blocks until exit.
//
// The orchestrator needs a Renderer and the Renderer needs the running
// program's Send, so construction is staged through the factory: build
// the view, hand its renderer to the caller to assemble the
// orchestrator, then start the program.
func Run(registry *commands.Registry, cmdCtx *commands.Context, build func(orchestrator.Renderer) *orchestrator.Orchestrator) error {
	var program *tea.Program
	send := func(msg any) {
		if program != nil {
			program.Send(msg)
		}
	}

	model := chat.NewModel(registry, cmdCtx)
	renderer := chat.NewRenderer(send, model.Scroll())
	model.SetOrchestrator(build(renderer))
	model.SetSend(send)

	cmdCtx.Quit = func() { send(chat.QuitRequestedMsg{}) }

	program = tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
