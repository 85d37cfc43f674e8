// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

// Renderer is the display boundary for one request/response cycle.
//
// The orchestrator and typewriter never touch a concrete display; they
// drive this interface, which makes the whole cycle testable headlessly.
// The TUI and plain REPL each provide an implementation.
type Renderer interface {
	// ShowUserMessage displays the submitted prompt.
	ShowUserMessage(content string)

	// ShowPlaceholder displays the loading indicator. It is called once
	// when the request is accepted and again with hasLinks=true if a
	// link payload is detected mid-stream.
	ShowPlaceholder(hasLinks bool)

	// AppendAssistantFragment displays the cumulative assistant text.
	// Intermediate calls carry the typewriter cursor suffix.
	AppendAssistantFragment(cumulative string)

	// ShowError displays a failure message inline in the transcript.
	ShowError(message string)

	// ShowLinks displays the resolved link payload after finalization.
	// titles is index-aligned with links; nil entries are unresolved.
	ShowLinks(links []string, titles []*string)

	// ScrollPosition reports the current transcript scroll offset, which
	// is persisted with the video payload so the view can be restored.
	ScrollPosition() int
}

// NullRenderer discards all output. Useful as a default and in tests
// that only care about persistence.
type NullRenderer struct{}

func (NullRenderer) ShowUserMessage(string)            {}
func (NullRenderer) ShowPlaceholder(bool)              {}
func (NullRenderer) AppendAssistantFragment(string)    {}
func (NullRenderer) ShowError(string)                  {}
func (NullRenderer) ShowLinks([]string, []*string)     {}
func (NullRenderer) ScrollPosition() int               { return 0 }
