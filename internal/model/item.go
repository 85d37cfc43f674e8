// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and items.
package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/jeranaias/vchat-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a conversation item.
type Role string

const (
	RoleUser           Role = "user"
	RoleAssistant      Role = "assistant"
	RoleVideoAssistant Role = "video_assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleVideoAssistant:
		return "Videos"
	default:
		return string(r)
	}
}

// Avatar image references carried on persisted items. The values are
// asset names understood by whoever renders the transcript; the client
// only stores them.
const (
	UserAvatar      = "user.webp"
	AssistantAvatar = "assistant.webp"
	VideoAvatar     = "video.webp"
)

// =============================================================================
// ITEM TYPE
// =============================================================================

// Item is one entry in a conversation transcript. For user and assistant
// items Content holds the message text and Video is nil. For
// video_assistant items Content is empty and Video carries the structured
// link payload.
//
// Items are append-only once persisted. The one sanctioned mutation is
// appending the truncation marker to an assistant item's text before an
// aborted stream is committed, which happens before the item reaches the
// store.
type Item struct {
	Role    Role          `json:"role"`
	Image   string        `json:"image,omitempty"`
	Content string        `json:"-"`
	Video   *VideoContent `json:"-"`
}

// VideoContent is the structured content of a video_assistant item.
// Titles is index-aligned with Links; a nil entry marks a title lookup
// that failed for that link.
type VideoContent struct {
	Links    []string  `json:"links"`
	Language string    `json:"language"`
	ScrollY  int       `json:"scrolly"`
	Titles   []*string `json:"titles"`
}

// NewUserItem creates a user item.
func NewUserItem(content string) Item {
	return Item{Role: RoleUser, Image: UserAvatar, Content: content}
}

// NewAssistantItem creates an assistant item with final text.
func NewAssistantItem(content string) Item {
	return Item{Role: RoleAssistant, Image: AssistantAvatar, Content: content}
}

// NewVideoItem creates a video_assistant item carrying the link payload.
func NewVideoItem(content VideoContent) Item {
	return Item{Role: RoleVideoAssistant, Image: VideoAvatar, Video: &content}
}

// IsVideo returns true for video_assistant items.
func (it Item) IsVideo() bool {
	return it.Role == RoleVideoAssistant
}

// Text returns the item content as plain text. Video items contribute
// their link list, one per line.
func (it Item) Text() string {
	if it.IsVideo() {
		if it.Video == nil {
			return ""
		}
		return strings.Join(it.Video.Links, "\n")
	}
	return it.Content
}

// Preview returns a truncated single-line preview of the item content.
func (it Item) Preview(maxRunes int) string {
	return util.TruncateRunes(strings.ReplaceAll(it.Text(), "\n", " "), maxRunes)
}

// =============================================================================
// JSON ENCODING
// =============================================================================

// itemWire mirrors the persisted JSON shape: "content" is a plain string
// for user/assistant items and an object for video_assistant items.
type itemWire struct {
	Role    Role            `json:"role"`
	Image   string          `json:"image,omitempty"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes Content as a string or as the structured video
// payload depending on the role.
func (it Item) MarshalJSON() ([]byte, error) {
	var content json.RawMessage
	var err error
	if it.IsVideo() {
		video := it.Video
		if video == nil {
			video = &VideoContent{}
		}
		content, err = json.Marshal(video)
	} else {
		content, err = json.Marshal(it.Content)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(itemWire{Role: it.Role, Image: it.Image, Content: content})
}

// UnmarshalJSON decodes the role-dependent content shape.
func (it *Item) UnmarshalJSON(data []byte) error {
	var wire itemWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	it.Role = wire.Role
	it.Image = wire.Image
	it.Content = ""
	it.Video = nil

	if len(wire.Content) == 0 {
		return nil
	}
	if wire.Role == RoleVideoAssistant {
		var video VideoContent
		if err := json.Unmarshal(wire.Content, &video); err != nil {
			return fmt.Errorf("video item content: %w", err)
		}
		it.Video = &video
		return nil
	}
	if err := json.Unmarshal(wire.Content, &it.Content); err != nil {
		return fmt.Errorf("%s item content: %w", wire.Role, err)
	}
	return nil
}

// =============================================================================
// LANGUAGE HANDLING
// =============================================================================

// Supported response languages. The stream reports the detected language
// of the reply; anything else falls back to English.
var supportedLanguages = language.NewMatcher([]language.Tag{
	language.English, // first entry is the fallback
	language.French,
})

// NormalizeLanguage maps a detected language code from the stream onto
// one of the supported codes ("en" or "fr").
func NormalizeLanguage(code string) string {
	if code == "" {
		return "en"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "en"
	}
	matched, _, _ := supportedLanguages.Match(tag)
	base, _ := matched.Base()
	if base.String() == "fr" {
		return "fr"
	}
	return "en"
}
