// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// =============================================================================
// ITEM JSON TESTS
// =============================================================================

func TestItemJSONRoundTripUser(t *testing.T) {
	item := NewUserItem("hello there")

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"content":"hello there"`) {
		t.Errorf("Expected plain string content, got %s", data)
	}

	var decoded Item
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Role != RoleUser {
		t.Errorf("Expected role user, got %s", decoded.Role)
	}
	if decoded.Content != "hello there" {
		t.Errorf("Expected content preserved, got %q", decoded.Content)
	}
	if decoded.Video != nil {
		t.Error("Expected nil video payload on user item")
	}
}

func TestItemJSONRoundTripVideo(t *testing.T) {
	title := "Intro to Go"
	item := NewVideoItem(VideoContent{
		Links:    []string{"https://youtu.be/abc12345678"},
		Language: "en",
		ScrollY:  420,
		Titles:   []*string{&title},
	})

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Item
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Role != RoleVideoAssistant {
		t.Errorf("Expected role video_assistant, got %s", decoded.Role)
	}
	if decoded.Video == nil {
		t.Fatal("Expected video payload")
	}
	if len(decoded.Video.Links) != 1 || decoded.Video.Links[0] != "https://youtu.be/abc12345678" {
		t.Errorf("Links not preserved: %v", decoded.Video.Links)
	}
	if decoded.Video.ScrollY != 420 {
		t.Errorf("Expected scrolly 420, got %d", decoded.Video.ScrollY)
	}
	if len(decoded.Video.Titles) != 1 || decoded.Video.Titles[0] == nil || *decoded.Video.Titles[0] != title {
		t.Errorf("Titles not preserved: %v", decoded.Video.Titles)
	}
}

func TestItemJSONVideoNullTitle(t *testing.T) {
	item := NewVideoItem(VideoContent{
		Links:    []string{"https://youtu.be/abc12345678", "https://youtu.be/def12345678"},
		Language: "fr",
		Titles:   []*string{nil, nil},
	})

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"titles":[null,null]`) {
		t.Errorf("Expected null titles in JSON, got %s", data)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversationTitleFromFirstUserItem(t *testing.T) {
	conv := NewConversation("")
	conv.AddItem(NewUserItem("What is a goroutine?"))
	conv.AddItem(NewAssistantItem("A goroutine is a lightweight thread."))

	if conv.Title != "What is a goroutine?" {
		t.Errorf("Expected auto title from first user item, got %q", conv.Title)
	}

	// Title must not change on later items.
	conv.AddItem(NewUserItem("Tell me more"))
	if conv.Title != "What is a goroutine?" {
		t.Errorf("Title changed on later item: %q", conv.Title)
	}
}

func TestConversationAppendOrder(t *testing.T) {
	conv := NewConversation("conv-1")
	conv.AddItem(NewUserItem("one"))
	conv.AddItem(NewAssistantItem("two"))
	conv.AddItem(NewVideoItem(VideoContent{Language: "en"}))

	if conv.ItemCount() != 3 {
		t.Fatalf("Expected 3 items, got %d", conv.ItemCount())
	}
	roles := []Role{RoleUser, RoleAssistant, RoleVideoAssistant}
	for i, want := range roles {
		if conv.Items[i].Role != want {
			t.Errorf("Item %d: expected role %s, got %s", i, want, conv.Items[i].Role)
		}
	}
}

func TestItemPreviewCountsRunesNotBytes(t *testing.T) {
	item := NewUserItem(strings.Repeat("é", 20) + "\ntail")
	got := item.Preview(10)
	if strings.Contains(got, "\n") {
		t.Errorf("Preview kept a newline: %q", got)
	}
	if want := strings.Repeat("é", 7) + "..."; got != want {
		t.Errorf("Preview = %q, want %q", got, want)
	}
}

func TestConversationPreviewTruncation(t *testing.T) {
	conv := NewConversation("")
	long := strings.Repeat("x", 200)
	conv.AddItem(NewUserItem(long))

	meta := conv.Meta()
	if len([]rune(meta.Preview)) > 100 {
		t.Errorf("Preview too long: %d runes", len([]rune(meta.Preview)))
	}
	if !strings.HasSuffix(meta.Preview, "...") {
		t.Errorf("Expected ellipsis suffix, got %q", meta.Preview)
	}
}

// =============================================================================
// LANGUAGE TESTS
// =============================================================================

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"fr", "fr"},
		{"fr-FR", "fr"},
		{"en-US", "en"},
		{"de", "en"}, // unsupported falls back
		{"", "en"},
		{"not a tag", "en"},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
