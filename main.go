// studyhall - A terminal client for a document-grounded study assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studyhall/internal/cli"
	uichat "github.com/jeranaias/studyhall/internal/ui/chat"
	"github.com/jeranaias/studyhall/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case cmd == cli.CmdTUI && cli.CanRunTUI():
		err = runTUI(ctx, args)
	case cmd == cli.CmdTUI:
		// Not a terminal: behave like `studyhall help`.
		cli.PrintUsage(os.Stdout)
		return
	default:
		err = cli.Execute(ctx, cmd, args, os.Stdout, os.Stderr)
	}

	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

// runTUI starts the interactive client. The TUI owns the terminal, so
// logging only goes to the log file.
func runTUI(ctx context.Context, args cli.Args) error {
	cfg, err := cli.LoadConfig(args, os.Stderr)
	if err != nil {
		return err
	}

	logFile, err := cli.SetupLogging(cfg.Log, false, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer logFile.Close()

	app, err := cli.NewApp(cfg, args, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := uichat.Options{
		Context:       ctx,
		Backend:       app.Client,
		Theme:         styles.NewTheme(cfg.UI.Theme),
		Uploads:       app.UploaderConfig(),
		ShowCitations: cfg.UI.ShowCitations,
		Compact:       cfg.UI.Compact,
	}
	// A nil *StateStore must not become a non-nil interface.
	if app.Store != nil {
		opts.Store = app.Store
	}

	p := tea.NewProgram(
		uichat.New(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running studyhall: %w", err)
	}
	return nil
}
