// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for studyhall.
package cli

import (
	"fmt"
	"io"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdSessions
	CmdMessages
	CmdAsk
	CmdUpload
	CmdUploads
	CmdExport
	CmdConfig
	CmdMockServer
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed by the user.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdSessions:
		return "sessions"
	case CmdMessages:
		return "messages"
	case CmdAsk:
		return "ask"
	case CmdUpload:
		return "upload"
	case CmdUploads:
		return "uploads"
	case CmdExport:
		return "export"
	case CmdConfig:
		return "config"
	case CmdMockServer:
		return "mock-server"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON       bool
	Verbose    bool
	Quiet      bool
	ConfigPath string
	APIURL     string

	// Unknown holds the unrecognized command for CmdUnknown.
	Unknown string

	// Parser holds everything after the command name.
	*ArgParser
}

const usageText = `studyhall - terminal client for your study assistant

Usage:
  studyhall                          Start the TUI (default)
  studyhall sessions [list]          List chat sessions
    --page N                         Page to fetch (default: 1)
  studyhall sessions create          Create an empty session
  studyhall sessions delete <id>     Delete a session
    --confirm                        Skip the confirmation prompt
  studyhall messages <session>       Show a session's messages, oldest first
    --page N                         Page to fetch (default: 1, newest)
  studyhall ask <session> "question" Ask the assistant in a session
    --no-citations                   Hide cited sources
  studyhall upload <session> <files...>
                                     Upload documents to a session
  studyhall uploads                  Show local upload history
    --limit N                        Entries to show (default: 20)
  studyhall export <session>         Export a session's full history
    --format md|json                 File format (default: md)
    --output DIR                     Directory to write to (default: .)
    --stdout                         Print instead of writing a file
  studyhall config [show|get|set|path|keys]
                                     Inspect or change configuration
  studyhall mock-server              Run an in-memory development backend
    --addr ADDR                      Listen address (default: :8787)
    --token TOKEN                    Accepted bearer token (default: any)
    --no-delete                      Leave DELETE /chats/:id unrouted
    --empty                          Start without example chats
  studyhall version                  Show version information
  studyhall help                     Show this help

Global Flags:
  --json           Output in JSON format
  --config PATH    Load configuration from PATH
  --api-url URL    Override api.base_url
  -v, --verbose    Debug logging
  -q, --quiet      Minimal output

Environment:
  STUDYHALL_API_URL, STUDYHALL_TOKEN, STUDYHALL_TOKEN_FILE and other
  STUDYHALL_* variables override the config file. A .env file in the
  working directory is loaded first.

Examples:
  studyhall mock-server --token dev &
  STUDYHALL_TOKEN=dev studyhall sessions create
  studyhall ask 3f2c "Summarize chapter 4"
  studyhall upload 3f2c notes.pdf essay.docx

Version: %s
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version details to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "studyhall version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses argv (without the program name) into a command and its args.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		args.ArgParser = NewArgParser(nil)
		return CmdTUI, args
	}

	name := strings.ToLower(remaining[0])
	args.ArgParser = NewArgParser(remaining[1:])

	switch name {
	case "tui":
		return CmdTUI, args
	case "sessions", "session", "s":
		return CmdSessions, args
	case "messages", "msgs", "m":
		return CmdMessages, args
	case "ask":
		return CmdAsk, args
	case "upload", "up":
		return CmdUpload, args
	case "uploads":
		return CmdUploads, args
	case "export":
		return CmdExport, args
	case "config", "cfg":
		return CmdConfig, args
	case "mock-server", "mock":
		return CmdMockServer, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		args.Unknown = name
		return CmdUnknown, args
	}
}

// parseGlobalFlags extracts flags valid for every command.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--json":
			args.JSON = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "--config" && i+1 < len(argv):
			i++
			args.ConfigPath = argv[i]
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--api-url" && i+1 < len(argv):
			i++
			args.APIURL = argv[i]
		case strings.HasPrefix(arg, "--api-url="):
			args.APIURL = strings.TrimPrefix(arg, "--api-url=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}
