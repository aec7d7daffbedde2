// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

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

	// Usage shows argument syntax (e.g., "/remove <n>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name     string
	Required bool
	Type     ArgType

	// Variadic consumes every remaining argument. Only the last ArgDef
	// may be variadic.
	Variadic bool

	Description string

	// Values for enum types
	Values []string
}

// ArgType indicates how an argument is validated and completed.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeFile                  // Local file path
	ArgTypeIndex                 // 1-based position in a list
	ArgTypeEnum                  // One of predefined values
)

// Command names dispatched by the UI.
const (
	CmdAttach    = "/attach"
	CmdUpload    = "/upload"
	CmdRemove    = "/remove"
	CmdExport    = "/export"
	CmdCitations = "/citations"
	CmdOlder     = "/older"
	CmdNew       = "/new"
	CmdMore      = "/more"
	CmdRetry     = "/retry"
	CmdHelp      = "/help"
	CmdQuit      = "/quit"
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands. Names and aliases match case
// insensitively.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
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
	r.commands[strings.ToLower(cmd.Name)] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[strings.ToLower(alias)] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
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

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// categoryOrder fixes the order of HelpText sections.
var categoryOrder = []string{"Attachments", "Session", "General"}

// HelpText returns a compact usage summary, one category per line.
func (r *Registry) HelpText() string {
	groups := r.ByCategory()
	var lines []string
	for _, category := range categoryOrder {
		cmds := groups[category]
		if len(cmds) == 0 {
			continue
		}
		usages := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			usages = append(usages, usage)
		}
		lines = append(lines, category+": "+strings.Join(usages, "  "))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	// Attachments
	r.Register(&Command{
		Name:        CmdAttach,
		Aliases:     []string{"/a"},
		Description: "Queue local files for upload",
		Usage:       "/attach <path...>",
		Category:    "Attachments",
		Args: []ArgDef{
			{Name: "path", Required: true, Type: ArgTypeFile, Variadic: true, Description: "file to attach"},
		},
	})
	r.Register(&Command{
		Name:        CmdUpload,
		Aliases:     []string{"/u"},
		Description: "Upload the queued files",
		Usage:       "/upload",
		Category:    "Attachments",
	})
	r.Register(&Command{
		Name:        CmdRemove,
		Aliases:     []string{"/rm"},
		Description: "Drop a queued file",
		Usage:       "/remove <n>",
		Category:    "Attachments",
		Args: []ArgDef{
			{Name: "n", Required: true, Type: ArgTypeIndex, Description: "attachment number"},
		},
	})

	// Session
	r.Register(&Command{
		Name:        CmdExport,
		Description: "Write the session to a file",
		Usage:       "/export [md|json]",
		Category:    "Session",
		Args: []ArgDef{
			{Name: "format", Type: ArgTypeEnum, Values: []string{"md", "json"}, Description: "file format"},
		},
	})
	r.Register(&Command{
		Name:        CmdCitations,
		Aliases:     []string{"/c"},
		Description: "Show or hide the latest sources",
		Category:    "Session",
	})
	r.Register(&Command{
		Name:        CmdOlder,
		Description: "Load older messages",
		Category:    "Session",
	})
	r.Register(&Command{
		Name:        CmdNew,
		Description: "Start a new session",
		Category:    "Session",
	})
	r.Register(&Command{
		Name:        CmdMore,
		Description: "Load more sessions",
		Category:    "Session",
	})
	r.Register(&Command{
		Name:        CmdRetry,
		Description: "Repeat the last failed request",
		Category:    "Session",
	})

	// General
	r.Register(&Command{
		Name:        CmdHelp,
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    "General",
	})
	r.Register(&Command{
		Name:        CmdQuit,
		Aliases:     []string{"/q", "/exit"},
		Description: "Quit studyhall",
		Category:    "General",
	})
}
