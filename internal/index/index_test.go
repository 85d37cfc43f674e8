// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"path/filepath"
	"testing"

	"github.com/jeranaias/vchat-tui/internal/model"
)

func openTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func buildConversation(id string, texts ...string) *model.Conversation {
	conv := model.NewConversation(id)
	for i, text := range texts {
		if i%2 == 0 {
			conv.AddItem(model.NewUserItem(text))
		} else {
			conv.AddItem(model.NewAssistantItem(text))
		}
	}
	return conv
}

func TestSearchFindsIndexedItems(t *testing.T) {
	idx := openTestIndex(t)

	conv := buildConversation("conv-1",
		"how do goroutines work",
		"A goroutine is a lightweight thread managed by the runtime.",
	)
	if err := idx.IndexConversation(conv); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	hits, err := idx.Search("goroutine", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	for _, hit := range hits {
		if hit.ConversationID != "conv-1" {
			t.Errorf("hit from unexpected conversation %q", hit.ConversationID)
		}
	}
}

func TestReindexReplacesOldRows(t *testing.T) {
	idx := openTestIndex(t)

	conv := buildConversation("conv-1", "tell me about elephants")
	if err := idx.IndexConversation(conv); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	conv = buildConversation("conv-1", "tell me about giraffes")
	if err := idx.IndexConversation(conv); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	hits, err := idx.Search("elephants", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale rows survived reindex: %d hits", len(hits))
	}

	hits, err = idx.Search("giraffes", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit for new content, got %d", len(hits))
	}
}

func TestRemoveConversation(t *testing.T) {
	idx := openTestIndex(t)

	if err := idx.IndexConversation(buildConversation("a", "alpha topic")); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}
	if err := idx.IndexConversation(buildConversation("b", "alpha topic too")); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}
	if err := idx.RemoveConversation("a"); err != nil {
		t.Fatalf("RemoveConversation: %v", err)
	}

	hits, err := idx.Search("alpha", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ConversationID != "b" {
		t.Errorf("expected only conversation b, got %+v", hits)
	}
}

func TestSearchLimit(t *testing.T) {
	idx := openTestIndex(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := idx.IndexConversation(buildConversation(id, "shared keyword zebra")); err != nil {
			t.Fatalf("IndexConversation: %v", err)
		}
	}

	hits, err := idx.Search("zebra", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits with limit 2, got %d", len(hits))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := openTestIndex(t)

	hits, err := idx.Search("", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits != nil {
		t.Errorf("expected nil hits for empty query, got %+v", hits)
	}
}

func TestSearchQuoteInQuery(t *testing.T) {
	idx := openTestIndex(t)

	if err := idx.IndexConversation(buildConversation("q", `he said "hello" loudly`)); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	// Quotes in user input must not break the FTS query syntax.
	if _, err := idx.Search(`"hello"`, 10); err != nil {
		t.Fatalf("Search with quotes: %v", err)
	}
}

func TestVideoItemsIndexedByLinks(t *testing.T) {
	idx := openTestIndex(t)

	conv := model.NewConversation("vid")
	conv.AddItem(model.NewUserItem("show me videos"))
	conv.AddItem(model.NewVideoItem(model.VideoContent{
		Links:    []string{"https://youtu.be/dQw4w9WgXcQ"},
		Language: "en",
	}))
	if err := idx.IndexConversation(conv); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	hits, err := idx.Search("dQw4w9WgXcQ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected the video item to be searchable by link, got %d hits", len(hits))
	}
	if hits[0].Role != model.RoleVideoAssistant {
		t.Errorf("hit role = %q, want %q", hits[0].Role, model.RoleVideoAssistant)
	}
}
