// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jeranaias/vchat-tui/internal/index"
	"github.com/jeranaias/vchat-tui/internal/model"
	"github.com/jeranaias/vchat-tui/internal/orchestrator"
	"github.com/jeranaias/vchat-tui/internal/store"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	idx, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	ctx := &Context{
		Store:   store.New(store.NewMemKV()),
		Index:   idx,
		Session: orchestrator.NewSession("conv-1"),
	}
	ctx.SwitchSession = func(sess *orchestrator.Session) { ctx.Session = sess }
	return ctx
}

// =============================================================================
// PARSER
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		command  string
		args     []string
		isCmd    bool
	}{
		{"plain prompt", "hello there", "", nil, false},
		{"bare command", "/help", "/help", nil, true},
		{"command with args", "/title my chat", "/title", []string{"my", "chat"}, true},
		{"quoted arg", `/title "my chat"`, "/title", []string{"my chat"}, true},
		{"single quoted arg", "/folder 'work stuff'", "/folder", []string{"work stuff"}, true},
		{"leading whitespace", "  /quit  ", "/quit", nil, true},
		{"slash only later", "not /a command", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			if result.IsCommand != tt.isCmd {
				t.Fatalf("IsCommand = %v, want %v", result.IsCommand, tt.isCmd)
			}
			if result.CommandName != tt.command {
				t.Errorf("CommandName = %q, want %q", result.CommandName, tt.command)
			}
			if !reflect.DeepEqual(result.Args, tt.args) {
				t.Errorf("Args = %v, want %v", result.Args, tt.args)
			}
		})
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestDispatchPassesThroughPrompts(t *testing.T) {
	r := NewRegistry()
	_, handled, err := r.Dispatch(newTestContext(t), "what is the weather")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if handled {
		t.Error("plain prompt should not be handled as a command")
	}
}

func TestDispatchRejectsUnknownCommand(t *testing.T) {
	r := NewRegistry()
	_, handled, err := r.Dispatch(newTestContext(t), "/frobnicate now")
	if !handled {
		t.Error("slash input must be handled even when unknown")
	}
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestDispatchAliases(t *testing.T) {
	r := NewRegistry()
	ctx := newTestContext(t)
	for _, alias := range []string{"/h", "/?"} {
		out, handled, err := r.Dispatch(ctx, alias)
		if err != nil || !handled {
			t.Fatalf("Dispatch(%s): handled=%v err=%v", alias, handled, err)
		}
		if !strings.Contains(out, "/title") {
			t.Errorf("help output missing command list")
		}
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func TestTitleCommand(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Create("conv-1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, handled, err := NewRegistry().Dispatch(ctx, `/title "Project notes"`)
	if !handled || err != nil {
		t.Fatalf("Dispatch: handled=%v err=%v", handled, err)
	}

	conv, err := ctx.Store.Load("conv-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if conv.Title != "Project notes" {
		t.Errorf("Title = %q, want %q", conv.Title, "Project notes")
	}
}

func TestTitleRequiresArgument(t *testing.T) {
	ctx := newTestContext(t)
	_, _, err := NewRegistry().Dispatch(ctx, "/title")
	if err == nil {
		t.Error("expected usage error for bare /title")
	}
}

func TestCategoryAndFolderCommands(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Create("conv-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	r := NewRegistry()

	if _, _, err := r.Dispatch(ctx, "/category research"); err != nil {
		t.Fatalf("category: %v", err)
	}
	if _, _, err := r.Dispatch(ctx, "/folder archive"); err != nil {
		t.Fatalf("folder: %v", err)
	}

	conv, err := ctx.Store.Load("conv-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if conv.Category != "research" || conv.Folder != "archive" {
		t.Errorf("category/folder = %q/%q", conv.Category, conv.Folder)
	}
}

func TestNewCommandSwitchesSession(t *testing.T) {
	ctx := newTestContext(t)
	old := ctx.Session.ConversationID

	if _, _, err := NewRegistry().Dispatch(ctx, "/new"); err != nil {
		t.Fatalf("new: %v", err)
	}
	if ctx.Session.ConversationID == old {
		t.Error("session was not switched")
	}
}

func TestNewCommandBlockedWhileStreaming(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Session.Lock.TryAcquire()

	_, _, err := NewRegistry().Dispatch(ctx, "/new")
	if err == nil {
		t.Error("expected error while a request is in flight")
	}
}

func TestDeleteCommand(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Append("conv-1", model.NewUserItem("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, _, err := NewRegistry().Dispatch(ctx, "/delete"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := ctx.Store.Load("conv-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("load after delete: %v, want ErrNotFound", err)
	}
	if ctx.Session.ConversationID == "conv-1" {
		t.Error("deleting the active conversation should start a fresh session")
	}
}

func TestListMarksActiveConversation(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Append("conv-1", model.NewUserItem("first message")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := ctx.Store.Append("conv-2", model.NewUserItem("other")); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, _, err := NewRegistry().Dispatch(ctx, "/list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var activeLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "conv-1") {
			activeLine = line
		}
	}
	if !strings.HasPrefix(activeLine, "*") {
		t.Errorf("active conversation not marked: %q", activeLine)
	}
}

func TestListTruncatesLongTitle(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Append("conv-1", model.NewUserItem("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	long := strings.Repeat("t", 60)
	err := ctx.Store.Update("conv-1", func(conv *model.Conversation) {
		conv.SetTitle(long)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	out, _, err := NewRegistry().Dispatch(ctx, "/list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Contains(out, long) {
		t.Errorf("title not truncated: %q", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("truncated title missing ellipsis: %q", out)
	}
}

func TestHelpListsLaterRegistrations(t *testing.T) {
	ctx := newTestContext(t)
	r := NewRegistry()
	r.Register(&Command{
		Name:        "/ping",
		Description: "Check backend reachability",
		Handler: func(*Context, []string) (string, error) {
			return "pong", nil
		},
	})

	out, _, err := r.Dispatch(ctx, "/help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out, "/ping") {
		t.Errorf("help output missing command registered after construction: %q", out)
	}
}

func TestSearchCommand(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Append("conv-1", model.NewUserItem("tell me about penguins")); err != nil {
		t.Fatalf("append: %v", err)
	}
	conv, err := ctx.Store.Load("conv-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ctx.Index.IndexConversation(conv); err != nil {
		t.Fatalf("index: %v", err)
	}

	out, _, err := NewRegistry().Dispatch(ctx, "/search penguins")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "penguins") {
		t.Errorf("search output missing hit: %q", out)
	}
}

func TestQuitCommand(t *testing.T) {
	ctx := newTestContext(t)
	called := false
	ctx.Quit = func() { called = true }

	if _, _, err := NewRegistry().Dispatch(ctx, "/quit"); err != nil {
		t.Fatalf("quit: %v", err)
	}
	if !called {
		t.Error("Quit callback not invoked")
	}
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestComplete(t *testing.T) {
	r := NewRegistry()

	matches := r.Complete("/t")
	if !reflect.DeepEqual(matches, []string{"/title"}) {
		t.Errorf("Complete(/t) = %v", matches)
	}

	if len(r.Complete("/")) < 9 {
		t.Errorf("Complete(/) should list every command, got %v", r.Complete("/"))
	}
}
