// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync/atomic"
)

// Renderer bridges the orchestrator's render calls onto the Bubble Tea
// event loop. All methods are safe to call from the orchestrator
// goroutine: they only post messages through send.
type Renderer struct {
	send   func(msg any)
	scroll *atomic.Int64
}

// NewRenderer creates a renderer posting through send. scroll is shared
// with the view model, which keeps it updated with the viewport offset
// so ScrollPosition can answer without crossing goroutines.
func NewRenderer(send func(msg any), scroll *atomic.Int64) *Renderer {
	return &Renderer{send: send, scroll: scroll}
}

func (r *Renderer) ShowUserMessage(prompt string) {
	r.send(UserMsg{Text: prompt})
}

func (r *Renderer) ShowPlaceholder(video bool) {
	r.send(PlaceholderMsg{Video: video})
}

func (r *Renderer) AppendAssistantFragment(text string) {
	r.send(StreamTextMsg{Text: text})
}

func (r *Renderer) ShowError(message string) {
	r.send(StreamErrorMsg{Message: message})
}

func (r *Renderer) ShowLinks(links []string, titles []*string) {
	r.send(LinksMsg{Links: links, Titles: titles})
}

func (r *Renderer) ScrollPosition() int {
	return int(r.scroll.Load())
}
