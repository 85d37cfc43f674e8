// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/vchat-tui/internal/model"
	"github.com/jeranaias/vchat-tui/internal/orchestrator"
	"github.com/jeranaias/vchat-tui/internal/store"
	"github.com/jeranaias/vchat-tui/internal/util"
)

// registerBuiltins installs the command whitelist. Adding a command
// here is the only way to make new slash input executable.
func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/title",
		Description: "Rename the current conversation",
		Usage:       "/title <text>",
		Handler:     handleTitle,
	})
	r.Register(&Command{
		Name:        "/category",
		Description: "Set the current conversation's category",
		Usage:       "/category <name>",
		Handler:     handleCategory,
	})
	r.Register(&Command{
		Name:        "/folder",
		Description: "Move the current conversation into a folder",
		Usage:       "/folder <name>",
		Handler:     handleFolder,
	})
	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new conversation",
		Handler:     handleNew,
	})
	r.Register(&Command{
		Name:        "/delete",
		Description: "Delete a conversation (current one by default)",
		Usage:       "/delete [id]",
		Handler:     handleDelete,
	})
	r.Register(&Command{
		Name:        "/list",
		Aliases:     []string{"/ls"},
		Description: "List saved conversations",
		Handler:     handleList,
	})
	r.Register(&Command{
		Name:        "/search",
		Description: "Search conversation transcripts",
		Usage:       "/search <query>",
		Handler:     handleSearch,
	})
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Handler:     r.handleHelp,
	})
	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit the client",
		Handler:     handleQuit,
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleTitle(ctx *Context, args []string) (string, error) {
	title := strings.Join(args, " ")
	if title == "" {
		return "", errors.New("usage: /title <text>")
	}
	err := ctx.Store.Update(ctx.Session.ConversationID, func(conv *model.Conversation) {
		conv.SetTitle(title)
	})
	if err != nil {
		return "", fmt.Errorf("set title: %w", err)
	}
	return fmt.Sprintf("Title set to %q", title), nil
}

func handleCategory(ctx *Context, args []string) (string, error) {
	category := strings.Join(args, " ")
	if category == "" {
		return "", errors.New("usage: /category <name>")
	}
	err := ctx.Store.Update(ctx.Session.ConversationID, func(conv *model.Conversation) {
		conv.SetCategory(category)
	})
	if err != nil {
		return "", fmt.Errorf("set category: %w", err)
	}
	return fmt.Sprintf("Category set to %q", category), nil
}

func handleFolder(ctx *Context, args []string) (string, error) {
	folder := strings.Join(args, " ")
	if folder == "" {
		return "", errors.New("usage: /folder <name>")
	}
	err := ctx.Store.Update(ctx.Session.ConversationID, func(conv *model.Conversation) {
		conv.SetFolder(folder)
	})
	if err != nil {
		return "", fmt.Errorf("set folder: %w", err)
	}
	return fmt.Sprintf("Moved to folder %q", folder), nil
}

func handleNew(ctx *Context, args []string) (string, error) {
	if ctx.Session != nil && ctx.Session.Lock.Locked() {
		return "", errors.New("a request is in flight; abort it first")
	}
	sess := orchestrator.NewSession("")
	if ctx.SwitchSession != nil {
		ctx.SwitchSession(sess)
	}
	ctx.Session = sess
	return fmt.Sprintf("Started conversation %s", sess.ConversationID), nil
}

func handleDelete(ctx *Context, args []string) (string, error) {
	id := ctx.Session.ConversationID
	if len(args) > 0 {
		id = args[0]
	}
	if err := ctx.Store.Remove(id); err != nil {
		return "", fmt.Errorf("delete conversation: %w", err)
	}
	if ctx.Index != nil {
		if err := ctx.Index.RemoveConversation(id); err != nil {
			return "", fmt.Errorf("remove from index: %w", err)
		}
	}
	// Deleting the active conversation starts a fresh one.
	if id == ctx.Session.ConversationID {
		sess := orchestrator.NewSession("")
		if ctx.SwitchSession != nil {
			ctx.SwitchSession(sess)
		}
		ctx.Session = sess
	}
	return fmt.Sprintf("Deleted conversation %s", id), nil
}

func handleList(ctx *Context, args []string) (string, error) {
	metas, err := ctx.Store.List()
	if err != nil {
		return "", fmt.Errorf("list conversations: %w", err)
	}
	if len(metas) == 0 {
		return "No saved conversations.", nil
	}

	var sb strings.Builder
	for _, meta := range metas {
		marker := " "
		if meta.ID == ctx.Session.ConversationID {
			marker = "*"
		}
		// Width-aware truncation keeps the columns aligned when titles
		// carry double-width characters.
		fmt.Fprintf(&sb, "%s %s  %-40s", marker, meta.ID, util.TruncateWidth(meta.Title, 40))
		if meta.Folder != "" {
			fmt.Fprintf(&sb, "  [%s]", meta.Folder)
		}
		fmt.Fprintf(&sb, "  %d items  %s\n", meta.ItemCount, meta.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func handleSearch(ctx *Context, args []string) (string, error) {
	query := strings.Join(args, " ")
	if query == "" {
		return "", errors.New("usage: /search <query>")
	}
	if ctx.Index == nil {
		return "", errors.New("search index not available")
	}
	hits, err := ctx.Index.Search(query, 20)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return "No matches.", nil
	}

	var sb strings.Builder
	for _, hit := range hits {
		title := hit.ConversationID
		if conv, err := ctx.Store.Load(hit.ConversationID); err == nil {
			title = conv.GetTitle()
		} else if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("load conversation: %w", err)
		}
		fmt.Fprintf(&sb, "%s (%s): %s\n", title, hit.Role.DisplayName(), hit.Snippet)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// handleHelp is bound to the dispatching registry so commands
// registered after construction are listed too.
func (r *Registry) handleHelp(ctx *Context, args []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, cmd := range r.All() {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&sb, "  %-24s %s\n", usage, cmd.Description)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func handleQuit(ctx *Context, args []string) (string, error) {
	if ctx.Quit != nil {
		ctx.Quit()
	}
	return "Bye.", nil
}
