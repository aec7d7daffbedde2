// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-interactive
// commands of studyhall.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Global flags plus an ArgParser over the command's arguments
//   - App: Configuration, API client, token provider and state store
//   - JSONResponse: Envelope printed by every command in --json mode
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	if err := cli.Execute(ctx, cmd, args, os.Stdout, os.Stderr); err != nil {
//	    cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands
//
//   - sessions: list, create and delete chat sessions
//   - messages: print a session's history
//   - ask: send one question and print the answer with its sources
//   - upload / uploads: send documents and show the local upload history
//   - export: write a session's full history as Markdown or JSON
//   - config: show, get and set configuration values
//   - mock-server: run the in-memory development backend
//
// Commands that take a session accept "last" (or nothing, where
// unambiguous) for the session used most recently against the same
// backend.
package cli
