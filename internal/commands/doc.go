// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the composer.
//
// This package handles parsing slash commands typed into the chat
// composer, validating their arguments and completing their names and
// file paths. Executing a command is left to the UI, which dispatches on
// Command.Name.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - ParseResult: Parsed command with name and arguments
//   - Completer: Tab completion for commands and file arguments
//
// # Built-in Commands
//
//   - /attach: Queue local files for upload
//   - /upload: Upload the queued files to the session
//   - /remove: Drop a queued file
//   - /export: Write the session to a Markdown or JSON file
//   - /citations, /older, /new, /more, /retry: Session shortcuts
//   - /help, /quit
//
// # Usage
//
//	parser := commands.NewParser(commands.NewRegistry())
//	result := parser.Parse(`/attach "lecture notes.pdf"`)
//	if result.Command != nil {
//	    err := commands.ValidateArgs(result.Command, result.Args)
//	}
package commands
