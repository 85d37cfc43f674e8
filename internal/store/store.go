// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists conversations to a local key-value store.
//
// Each conversation is one JSON-encoded record at a namespaced key
// ("conversation:<id>"). Appends are load-modify-write cycles; an
// internal mutex serializes writers so concurrent appends cannot lose
// updates even though the prompt lock already serializes requests in
// the normal flow.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jeranaias/vchat-tui/internal/model"
)

// keyPrefix namespaces conversation records inside the KV.
const keyPrefix = "conversation:"

// ErrNotFound is returned when a conversation id has no record.
var ErrNotFound = errors.New("conversation not found")

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore provides append-only per-conversation persistence.
type ConversationStore struct {
	mu sync.Mutex
	kv KV
}

// New creates a store backed by the given KV.
func New(kv KV) *ConversationStore {
	return &ConversationStore{kv: kv}
}

// key builds the namespaced record key for a conversation id.
func key(id string) string {
	return keyPrefix + id
}

// Create inserts an empty conversation record if absent. Calling it for
// an existing id is a no-op: existing items are never cleared.
func (s *ConversationStore) Create(id string) error {
	if id == "" {
		return errors.New("conversation id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists, err := s.kv.Get(key(id))
	if err != nil {
		return fmt.Errorf("check conversation %s: %w", id, err)
	}
	if exists {
		return nil
	}
	return s.write(model.NewConversation(id))
}

// Append loads the record, appends the items in order, and writes it
// back. The record is created on the fly if Create was never called.
func (s *ConversationStore) Append(id string, items ...model.Item) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(id)
	if err == ErrNotFound {
		conv = model.NewConversation(id)
		err = nil
	}
	if err != nil {
		return err
	}
	for _, item := range items {
		conv.AddItem(item)
	}
	return s.write(conv)
}

// Update loads the record, applies fn, and writes it back. Used for
// metadata edits (title, category, folder) that are not appends.
func (s *ConversationStore) Update(id string, fn func(*model.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(id)
	if err != nil {
		return err
	}
	fn(conv)
	return s.write(conv)
}

// Load returns the full conversation record, or ErrNotFound.
func (s *ConversationStore) Load(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// Remove deletes the conversation record. Removing a missing id is not
// an error.
func (s *ConversationStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(key(id))
}

// List returns metadata for every stored conversation, most recently
// updated first. Records that fail to decode are skipped rather than
// failing the whole listing.
func (s *ConversationStore) List() ([]model.ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs, err := s.kv.List(keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	metas := make([]model.ConversationMeta, 0, len(pairs))
	for _, pair := range pairs {
		var conv model.Conversation
		if err := json.Unmarshal(pair.Value, &conv); err != nil {
			// Skip malformed records instead of failing the listing.
			continue
		}
		metas = append(metas, conv.Meta())
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// load reads and decodes one record. Caller holds the mutex.
func (s *ConversationStore) load(id string) (*model.Conversation, error) {
	value, found, err := s.kv.Get(key(id))
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	var conv model.Conversation
	if err := json.Unmarshal(value, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

// write encodes and stores one record. Caller holds the mutex.
func (s *ConversationStore) write(conv *model.Conversation) error {
	value, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", conv.ID, err)
	}
	if err := s.kv.Put(key(conv.ID), value); err != nil {
		return fmt.Errorf("write conversation %s: %w", conv.ID, err)
	}
	return nil
}
