// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and items.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one chat session's ordered transcript plus metadata.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Folder    string    `json:"folder,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Transcript, insertion-ordered and append-only.
	Items []Item `json:"items"`
}

// NewConversationID generates a client-side conversation identifier.
func NewConversationID() string {
	return uuid.NewString()
}

// NewConversation creates an empty conversation with the given id.
// An empty id gets a generated one.
func NewConversation(id string) *Conversation {
	if id == "" {
		id = NewConversationID()
	}
	now := time.Now()
	return &Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Items:     make([]Item, 0),
	}
}

// =============================================================================
// ITEM MANAGEMENT
// =============================================================================

// AddItem appends an item to the transcript.
func (c *Conversation) AddItem(item Item) {
	c.Items = append(c.Items, item)
	c.UpdatedAt = time.Now()
	c.updateTitle()
}

// LastItem returns the most recent item, or a zero Item and false when empty.
func (c *Conversation) LastItem() (Item, bool) {
	if len(c.Items) == 0 {
		return Item{}, false
	}
	return c.Items[len(c.Items)-1], true
}

// ItemCount returns the number of transcript items.
func (c *Conversation) ItemCount() int {
	return len(c.Items)
}

// IsEmpty returns true if there are no items.
func (c *Conversation) IsEmpty() bool {
	return len(c.Items) == 0
}

// History returns the transcript for display or request building.
func (c *Conversation) History() []Item {
	return c.Items
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user item if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, item := range c.Items {
		if item.Role == RoleUser {
			c.Title = item.Preview(50)
			return
		}
	}
}

// SetTitle manually sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now()
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// SetCategory assigns the conversation to a category.
func (c *Conversation) SetCategory(category string) {
	c.Category = category
	c.UpdatedAt = time.Now()
}

// SetFolder moves the conversation into a folder.
func (c *Conversation) SetFolder(folder string) {
	c.Folder = folder
	c.UpdatedAt = time.Now()
}

// =============================================================================
// LISTING METADATA
// =============================================================================

// ConversationMeta holds lightweight metadata for conversation listings.
type ConversationMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Folder    string    `json:"folder,omitempty"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Preview   string    `json:"preview"`
}

// Meta returns listing metadata for the conversation.
func (c *Conversation) Meta() ConversationMeta {
	preview := "Empty conversation"
	if last, ok := c.LastItem(); ok {
		preview = last.Preview(100)
	}
	return ConversationMeta{
		ID:        c.ID,
		Title:     c.GetTitle(),
		Category:  c.Category,
		Folder:    c.Folder,
		ItemCount: len(c.Items),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Preview:   preview,
	}
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		Category:  c.Category,
		Folder:    c.Folder,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Items:     make([]Item, len(c.Items)),
	}
	for i, item := range c.Items {
		if item.Video != nil {
			video := *item.Video
			video.Links = append([]string(nil), item.Video.Links...)
			video.Titles = append([]*string(nil), item.Video.Titles...)
			item.Video = &video
		}
		clone.Items[i] = item
	}
	return clone
}
