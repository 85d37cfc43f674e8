// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jeranaias/vchat-tui/internal/model"
)

// =============================================================================
// PROMPT LOCK
// =============================================================================

// PromptLock admits at most one in-flight request at a time. Submissions
// while locked are rejected, not queued.
type PromptLock struct {
	locked atomic.Bool
}

// TryAcquire attempts to take the lock without blocking.
func (l *PromptLock) TryAcquire() bool {
	return l.locked.CompareAndSwap(false, true)
}

// Release frees the lock.
func (l *PromptLock) Release() {
	l.locked.Store(false)
}

// Locked reports whether a request is in flight.
func (l *PromptLock) Locked() bool {
	return l.locked.Load()
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the explicit per-conversation request context: the
// conversation identity, the prompt lock serializing its requests, and
// the cancellation handle for the in-flight request. It replaces what a
// less careful design would keep in globals.
type Session struct {
	ConversationID string
	Lock           PromptLock

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSession creates a session for the given conversation id; an empty
// id gets a generated one.
func NewSession(conversationID string) *Session {
	if conversationID == "" {
		conversationID = model.NewConversationID()
	}
	return &Session{ConversationID: conversationID}
}

// BindCancel derives a cancellable context for one request and records
// its cancel handle so Abort can reach the in-flight stream.
func (s *Session) BindCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	return ctx
}

// Abort cancels the in-flight request, if any. The orchestrator observes
// the cancellation on its next stream read and takes the aborted path.
func (s *Session) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// clearCancel drops the cancel handle once a request reaches a terminal
// state, releasing the derived context's resources.
func (s *Session) clearCancel() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}
