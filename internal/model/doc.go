// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and items.
//
// A Conversation is the ordered, persisted record of one chat session.
// Its transcript is a sequence of Items tagged by Role: plain user and
// assistant messages carry string content, while video_assistant items
// carry a structured payload of reference links, resolved titles, the
// detected response language, and the scroll position at finalization.
package model
