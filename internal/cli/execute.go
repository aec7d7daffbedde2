// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// execute.go - Dispatch of non-interactive commands.

package cli

import (
	"context"
	"fmt"
	"io"
)

// Execute runs every command except the TUI. Errors are returned for the
// caller to display with DisplayError.
func Execute(ctx context.Context, cmd Command, args Args, stdout, stderr io.Writer) error {
	switch cmd {
	case CmdVersion:
		if args.JSON {
			return NewJSONResponse("version", map[string]string{
				"version":    Version,
				"git_commit": GitCommit,
				"build_date": BuildDate,
			}).Print(stdout)
		}
		PrintVersion(stdout)
		return nil
	case CmdHelp:
		PrintUsage(stdout)
		return nil
	case CmdUnknown:
		reason := "unknown command; see studyhall help"
		if s := SuggestCommand(args.Unknown); s != "" {
			reason = fmt.Sprintf("unknown command; did you mean %q?", s)
		}
		return NewValidationError("command", args.Unknown, reason)
	case CmdMockServer:
		return RunMockServer(ctx, args.ArgParser, args.Verbose, stdout)
	}

	cfg, err := LoadConfig(args, stderr)
	if err != nil {
		return err
	}
	if cmd == CmdConfig {
		return RunConfig(cfg, args.ArgParser, args.JSON, stdout)
	}

	logFile, err := SetupLogging(cfg.Log, args.Verbose, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s %v\n", WarningStyle.Render("Warning:"), err)
	}
	defer logFile.Close()

	app, err := NewApp(cfg, args, stdout, stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case CmdSessions:
		return app.RunSessions(ctx, args.ArgParser)
	case CmdMessages:
		return app.RunMessages(ctx, args.ArgParser)
	case CmdAsk:
		return app.RunAsk(ctx, args.ArgParser)
	case CmdUpload:
		return app.RunUpload(ctx, args.ArgParser)
	case CmdUploads:
		return app.RunUploads(ctx, args.ArgParser)
	case CmdExport:
		return app.RunExport(ctx, args.ArgParser)
	default:
		return fmt.Errorf("command %s cannot run non-interactively", cmd)
	}
}
