// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"sync"
	"time"
)

// Live is a concurrency-safe view over the current configuration. The
// file watcher replaces the snapshot on reload; readers pick up the new
// values on their next call, so tunables like the typing delay and the
// message language apply to subsequent requests without a restart.
type Live struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewLive wraps an initial configuration.
func NewLive(cfg *Config) *Live {
	return &Live{cfg: cfg}
}

// Replace swaps in a freshly loaded configuration.
func (l *Live) Replace(cfg *Config) {
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
}

// Snapshot returns the current configuration. Callers must not mutate it.
func (l *Live) Snapshot() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// TypingDelay returns the current typing animation delay.
func (l *Live) TypingDelay() time.Duration {
	return l.Snapshot().TypingDelay()
}

// Language returns the current UI language.
func (l *Live) Language() string {
	return l.Snapshot().UI.Language
}
