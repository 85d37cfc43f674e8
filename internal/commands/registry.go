// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the chat client.
//
// The dispatcher is a closed whitelist: only registered commands run,
// and anything else starting with "/" is rejected rather than forwarded
// to the backend as a prompt.
package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/vchat-tui/internal/index"
	"github.com/jeranaias/vchat-tui/internal/orchestrator"
	"github.com/jeranaias/vchat-tui/internal/store"
)

// ErrUnknownCommand is returned for slash input that matches no
// registered command.
var ErrUnknownCommand = errors.New("unknown command")

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/title <text>")
	Usage string

	// Handler executes the command and returns output for display
	Handler func(ctx *Context, args []string) (string, error)
}

// =============================================================================
// CONTEXT TYPE
// =============================================================================

// Context provides access to application state for command handlers.
// Optional fields may be nil; handlers check before use.
type Context struct {
	// Store handles conversation persistence
	Store *store.ConversationStore

	// Index provides transcript search (optional)
	Index *index.SearchIndex

	// Session is the active conversation session
	Session *orchestrator.Session

	// SwitchSession replaces the active session (used by /new)
	SwitchSession func(*orchestrator.Session)

	// Quit requests application shutdown
	Quit func()
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias, nil if unregistered.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Complete returns command names matching the given prefix, for tab
// completion.
func (r *Registry) Complete(prefix string) []string {
	var matches []string
	for name := range r.commands {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	for alias := range r.aliases {
		if strings.HasPrefix(alias, prefix) {
			matches = append(matches, alias)
		}
	}
	sort.Strings(matches)
	return matches
}

// Dispatch parses slash input and runs the matching command. Input that
// is not a command returns ("", false, nil) so the caller can treat it
// as a prompt. Unknown commands fail with ErrUnknownCommand.
func (r *Registry) Dispatch(ctx *Context, input string) (output string, handled bool, err error) {
	result := Parse(input)
	if !result.IsCommand {
		return "", false, nil
	}
	cmd := r.Get(result.CommandName)
	if cmd == nil {
		return "", true, fmt.Errorf("%w: %s", ErrUnknownCommand, result.CommandName)
	}
	output, err = cmd.Handler(ctx, result.Args)
	return output, true, err
}
