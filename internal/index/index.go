// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over persisted conversations.
//
// The index is derived data: it is rebuilt from the conversation store
// at startup and refreshed after each completed exchange, so losing or
// deleting the database file costs nothing but a rebuild.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/vchat-tui/internal/model"
)

// schema holds transcript items plus an FTS5 mirror kept in sync by
// triggers, same layout idea as a symbols index: rows in a plain table,
// search through the virtual table.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    item_idx INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_conversation ON items(conversation_id);

CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
    content,
    content='items',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS items_ai AFTER INSERT ON items BEGIN
    INSERT INTO items_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS items_ad AFTER DELETE ON items BEGIN
    INSERT INTO items_fts(items_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;
`

// =============================================================================
// SEARCH INDEX
// =============================================================================

// SearchIndex is a sqlite-backed full-text index over transcript items.
type SearchIndex struct {
	mu sync.Mutex
	db *sql.DB
}

// Hit is one search result.
type Hit struct {
	ConversationID string
	ItemIndex      int
	Role           model.Role
	Snippet        string
}

// Open opens (creating if needed) the index database at path.
func Open(path string) (*SearchIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	// SQLite supports one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SearchIndex{db: db}, nil
}

// IndexConversation replaces the indexed rows for one conversation with
// the conversation's current transcript.
func (idx *SearchIndex) IndexConversation(conv *model.Conversation) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM items WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("clear conversation rows: %w", err)
	}
	for i, item := range conv.Items {
		text := item.Text()
		if text == "" {
			continue
		}
		_, err := tx.Exec(
			"INSERT INTO items (conversation_id, item_idx, role, content) VALUES (?, ?, ?, ?)",
			conv.ID, i, item.Role.String(), text,
		)
		if err != nil {
			return fmt.Errorf("insert item row: %w", err)
		}
	}
	return tx.Commit()
}

// RemoveConversation drops a conversation's rows from the index.
func (idx *SearchIndex) RemoveConversation(conversationID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, err := idx.db.Exec("DELETE FROM items WHERE conversation_id = ?", conversationID)
	return err
}

// Search runs a full-text query and returns up to limit hits, best
// match first.
func (idx *SearchIndex) Search(query string, limit int) ([]Hit, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	rows, err := idx.db.Query(`
		SELECT i.conversation_id, i.item_idx, i.role,
		       snippet(items_fts, 0, '', '', '…', 12)
		FROM items_fts
		JOIN items i ON i.id = items_fts.rowid
		WHERE items_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		var role string
		if err := rows.Scan(&hit.ConversationID, &hit.ItemIndex, &role, &hit.Snippet); err != nil {
			return nil, err
		}
		hit.Role = model.Role(role)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Rebuild reindexes every conversation provided by the loader.
func (idx *SearchIndex) Rebuild(convs []*model.Conversation) error {
	for _, conv := range convs {
		if err := idx.IndexConversation(conv); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (idx *SearchIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.db.Close()
}

// ftsQuery quotes each term so user input cannot inject FTS5 syntax.
func ftsQuery(query string) string {
	var out []byte
	out = append(out, '"')
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '"' {
			out = append(out, '"', '"')
			continue
		}
		out = append(out, c)
	}
	out = append(out, '"')
	return string(out)
}
