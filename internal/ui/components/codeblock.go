// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable pieces for the vchat TUI.
package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vchat-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock renders a fenced code block with syntax highlighting.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
}

// NewCodeBlock creates a code block with the default width.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{Language: language, Code: code, MaxWidth: 80}
}

// Render returns the styled block. Highlighting failures degrade to the
// plain code text.
func (c CodeBlock) Render() string {
	code := strings.TrimRight(c.Code, "\n")
	highlighted := Highlight(code, c.Language)

	var header string
	if c.Language != "" {
		header = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Bold(true).
			Render(c.Language) + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}
	block := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(highlighted)

	return header + block
}

// Highlight applies terminal syntax highlighting to code. Unknown
// languages are passed through unchanged.
func Highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}

	style := chromaStyles.Get("monokai")
	formatter := formatters.Get("terminal256")
	if style == nil || formatter == nil {
		return code
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var sb strings.Builder
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderMarkdownCode walks text and replaces fenced code blocks with
// highlighted ones, leaving the surrounding prose untouched.
func RenderMarkdownCode(text string, maxWidth int) string {
	if !strings.Contains(text, "```") {
		return text
	}

	var out strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open == -1 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:open])
		rest = rest[open+3:]

		newline := strings.IndexByte(rest, '\n')
		if newline == -1 {
			// Unterminated fence mid-stream; leave it as is.
			out.WriteString("```" + rest)
			break
		}
		language := strings.TrimSpace(rest[:newline])
		rest = rest[newline+1:]

		closing := strings.Index(rest, "```")
		if closing == -1 {
			out.WriteString("```" + language + "\n" + rest)
			break
		}
		block := CodeBlock{Language: language, Code: rest[:closing], MaxWidth: maxWidth}
		out.WriteString(block.Render())
		rest = rest[closing+3:]
	}
	return out.String()
}
