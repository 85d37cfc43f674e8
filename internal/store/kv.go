// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists conversations to a local key-value store.
package store

import (
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// KV INTERFACE
// =============================================================================

// KV is the local key-value store the conversation store writes through.
// Implementations must be safe for concurrent use. The store treats the
// KV as reliable and synchronous; write errors are surfaced but carry no
// retry policy.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)

	// Put stores value under key, overwriting any previous value.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// List returns all key/value pairs whose key starts with prefix,
	// in ascending key order.
	List(prefix string) ([]Pair, error)

	// Close releases underlying resources.
	Close() error
}

// Pair is one key/value entry returned by List.
type Pair struct {
	Key   string
	Value []byte
}

// =============================================================================
// IN-MEMORY KV
// =============================================================================

// MemKV is a map-backed KV for tests and ephemeral sessions.
type MemKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemKV creates an empty in-memory store.
func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string][]byte)}
}

// Get returns the value for key and whether it exists.
func (m *MemKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Put stores value under key.
func (m *MemKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *MemKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// List returns all pairs under prefix in ascending key order.
func (m *MemKV) List(prefix string) ([]Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pairs []Pair
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			pairs = append(pairs, Pair{Key: k, Value: append([]byte(nil), v...)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

// Close is a no-op for the in-memory store.
func (m *MemKV) Close() error {
	return nil
}
