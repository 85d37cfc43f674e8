// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typewriter paces buffered response text onto a render callback.
//
// Network delivery of response fragments is bursty; the typewriter
// decouples arrival rate from display rate by draining its queue one
// rune at a time with a fixed inter-rune delay, producing a smooth
// typing animation. One Typewriter serves exactly one response and is
// discarded after Finalize.
package typewriter

import (
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the default pause between rendered runes.
const DefaultDelay = 7 * time.Millisecond

// Cursor is the transient in-progress marker appended to every
// intermediate render. Finalize strips it.
const Cursor = "▌"

// RenderFunc receives the cumulative displayed text on every update.
// Intermediate updates carry the Cursor suffix; the final update does
// not. The callback must not call back into the Typewriter.
type RenderFunc func(text string)

// =============================================================================
// TYPEWRITER
// =============================================================================

// Typewriter buffers incoming text fragments and emits them as a paced
// sequence of display updates.
//
// Thread-safety: fragments arrive from the stream-reading goroutine
// while pacing runs on its own goroutine, so all state is mutex-guarded.
// A single pacing loop drains the queue; enqueueing while pacing joins
// the existing drain instead of starting a second loop.
type Typewriter struct {
	mu   sync.Mutex
	cond *sync.Cond

	render RenderFunc
	delay  time.Duration

	displayed strings.Builder
	queue     []rune
	pacing    bool
	finalized bool

	// stop interrupts an in-flight pacing delay when Finalize is called.
	stop chan struct{}
}

// New creates a typewriter with the given render callback and delay.
// A non-positive delay falls back to DefaultDelay; to disable pacing in
// tests use NewImmediate.
func New(render RenderFunc, delay time.Duration) *Typewriter {
	if delay <= 0 {
		delay = DefaultDelay
	}
	tw := &Typewriter{render: render, delay: delay, stop: make(chan struct{})}
	tw.cond = sync.NewCond(&tw.mu)
	return tw
}

// NewImmediate creates a typewriter that paces with no delay.
// The queue is still drained rune by rune on the pacing goroutine, so
// render ordering is identical to the paced version.
func NewImmediate(render RenderFunc) *Typewriter {
	tw := &Typewriter{render: render, stop: make(chan struct{})}
	tw.cond = sync.NewCond(&tw.mu)
	return tw
}

// Enqueue appends a fragment to the pending queue and starts the pacing
// loop if one is not already running. Fragments enqueued after Finalize
// are dropped.
func (tw *Typewriter) Enqueue(fragment string) {
	if fragment == "" {
		return
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.finalized {
		return
	}
	tw.queue = append(tw.queue, []rune(fragment)...)
	if !tw.pacing {
		tw.pacing = true
		go tw.pace()
	}
}

// pace drains the queue one rune at a time until it is empty or the
// typewriter is finalized. Exactly one pace goroutine runs at a time.
func (tw *Typewriter) pace() {
	for {
		tw.mu.Lock()
		if tw.finalized || len(tw.queue) == 0 {
			tw.pacing = false
			tw.cond.Broadcast()
			tw.mu.Unlock()
			return
		}
		tw.displayed.WriteRune(tw.queue[0])
		tw.queue = tw.queue[1:]
		snapshot := tw.displayed.String() + Cursor
		tw.mu.Unlock()

		tw.emit(snapshot)
		if tw.delay > 0 {
			// Interruptible delay: Finalize closes stop so the drain
			// can complete without waiting out the pause.
			timer := time.NewTimer(tw.delay)
			select {
			case <-tw.stop:
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

// Finalize drains any remaining queued text immediately, strips the
// in-progress marker, emits one last render, and returns the final
// cumulative text. It blocks until the pacing loop has stopped so no
// stale cursor render can follow the final one.
func (tw *Typewriter) Finalize() string {
	tw.mu.Lock()
	if !tw.finalized {
		tw.finalized = true
		close(tw.stop)
	}
	for tw.pacing {
		tw.cond.Wait()
	}
	if len(tw.queue) > 0 {
		tw.displayed.WriteString(string(tw.queue))
		tw.queue = nil
	}
	final := tw.displayed.String()
	tw.mu.Unlock()

	tw.emit(final)
	return final
}

// Displayed returns the cumulative text emitted so far, without the
// cursor marker.
func (tw *Typewriter) Displayed() string {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.displayed.String()
}

// Pending returns the number of queued, not yet displayed runes.
func (tw *Typewriter) Pending() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return len(tw.queue)
}

func (tw *Typewriter) emit(text string) {
	if tw.render != nil {
		tw.render(text)
	}
}
