// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
)

func TestHighlightUnknownLanguagePassesThrough(t *testing.T) {
	code := "complete gibberish ~~ no lexer matches ~~"
	if got := Highlight(code, "nosuchlang"); !strings.Contains(got, "gibberish") {
		t.Errorf("Highlight lost the code text: %q", got)
	}
}

func TestHighlightGo(t *testing.T) {
	got := Highlight("func main() {}", "go")
	if got == "" {
		t.Fatal("empty highlight output")
	}
	// The token text must survive whatever escape codes are added.
	stripped := got
	if !strings.Contains(stripped, "main") {
		t.Errorf("highlighted output lost token text: %q", got)
	}
}

func TestRenderMarkdownCodeLeavesProseAlone(t *testing.T) {
	text := "no fences here at all"
	if got := RenderMarkdownCode(text, 80); got != text {
		t.Errorf("prose was modified: %q", got)
	}
}

func TestRenderMarkdownCodeReplacesFence(t *testing.T) {
	text := "before\n```go\nfunc f() {}\n```\nafter"
	got := RenderMarkdownCode(text, 80)
	if strings.Contains(got, "```") {
		t.Errorf("fence markers left in output: %q", got)
	}
	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Errorf("surrounding prose lost: %q", got)
	}
}

func TestRenderMarkdownCodeUnterminatedFence(t *testing.T) {
	text := "streaming\n```py\nprint(1)"
	got := RenderMarkdownCode(text, 80)
	if !strings.Contains(got, "print(1)") {
		t.Errorf("unterminated block content lost: %q", got)
	}
}
