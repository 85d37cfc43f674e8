// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the TUI.
//
// This file defines the Bubble Tea message types the view consumes.
// Streaming messages originate on the orchestrator goroutine and are
// delivered through program.Send; everything else comes from key input.
package chat

import (
	"github.com/jeranaias/vchat-tui/internal/orchestrator"
)

// UserMsg echoes a submitted prompt into the transcript.
type UserMsg struct {
	Text string
}

// StreamTextMsg carries the cumulative assistant text, cursor included
// on intermediate updates.
type StreamTextMsg struct {
	Text string
}

// PlaceholderMsg signals whether the in-flight reply is a link payload.
type PlaceholderMsg struct {
	Video bool
}

// StreamErrorMsg carries the localized failure message for display.
type StreamErrorMsg struct {
	Message string
}

// LinksMsg delivers the resolved link list for the completed reply.
type LinksMsg struct {
	Links  []string
	Titles []*string
}

// DoneMsg signals that the request reached a terminal state.
type DoneMsg struct {
	Result orchestrator.Result
	Err    error
}

// CommandOutputMsg carries the textual result of a slash command.
type CommandOutputMsg struct {
	Output string
	Err    error
}

// QuitRequestedMsg asks the program to exit (sent by /quit).
type QuitRequestedMsg struct{}
