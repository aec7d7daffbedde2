// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring of configuration, auth, API client and local state.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/auth"
	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/config"
	"github.com/jeranaias/studyhall/internal/storage"
)

// App carries the collaborators every networked command needs.
type App struct {
	Config *config.Config
	Client *api.Client
	Tokens auth.Provider
	// Store is nil when the state database could not be opened.
	Store *storage.StateStore

	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	JSON   bool
	Quiet  bool
	Logger *slog.Logger
}

// LoadConfig loads configuration honoring --config and --api-url.
// A broken config file is reported on stderr and defaults are used.
func LoadConfig(args Args, stderr io.Writer) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			fmt.Fprintf(stderr, "%s %v (using defaults)\n", WarningStyle.Render("Warning:"), err)
		}
	}

	if args.APIURL != "" {
		cfg.API.BaseURL = strings.TrimSuffix(args.APIURL, "/")
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --api-url: %w", err)
		}
	}
	return cfg, nil
}

// NewApp builds the API client and opens local state for cfg.
func NewApp(cfg *config.Config, args Args, stdout, stderr io.Writer) (*App, error) {
	tokens, err := auth.NewProvider(cfg.Auth.Token, cfg.Auth.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	logger := slog.Default()
	client := api.NewClient(cfg.API.BaseURL, tokens).
		WithTimeout(cfg.API.Timeout()).
		WithMaxRetries(cfg.API.MaxRetries).
		WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst).
		WithLogger(logger)

	app := &App{
		Config: cfg,
		Client: client,
		Tokens: tokens,
		In:     os.Stdin,
		Out:    stdout,
		Err:    stderr,
		JSON:   args.JSON,
		Quiet:  args.Quiet,
		Logger: logger,
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		logger.Warn("state store unavailable", "error", err)
	} else {
		app.Store = store
	}
	return app, nil
}

// Close releases the token provider and the state store.
func (a *App) Close() error {
	var errs []error
	if a.Tokens != nil {
		errs = append(errs, a.Tokens.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// UploaderConfig returns the configured upload validation rules.
func (a *App) UploaderConfig() chat.UploaderConfig {
	return chat.UploaderConfig{
		MaxSize:       a.Config.Upload.MaxSizeBytes(),
		SingleFile:    a.Config.Upload.SingleFile,
		AcceptedTypes: a.Config.Upload.AcceptedTypes,
	}
}

// NewUploader creates an uploader using the configured validation rules.
func (a *App) NewUploader() *chat.Uploader {
	return chat.NewUploader(a.Client, a.UploaderConfig())
}

// rememberSession records sessionID as the last one used with this backend.
func (a *App) rememberSession(ctx context.Context, sessionID string) {
	if a.Store == nil {
		return
	}
	if err := a.Store.SetLastSession(ctx, a.Client.BaseURL(), sessionID); err != nil {
		a.Logger.Warn("could not remember session", "error", err)
	}
}

// printf writes human output unless in JSON or quiet mode.
func (a *App) printf(format string, args ...interface{}) {
	if a.JSON || a.Quiet {
		return
	}
	fmt.Fprintf(a.Out, format, args...)
}

// output prints data as a JSON envelope in JSON mode, or runs human otherwise.
func (a *App) output(command string, data interface{}, human func()) error {
	if a.JSON {
		return NewJSONResponse(command, data).Print(a.Out)
	}
	if !a.Quiet {
		human()
	}
	return nil
}

// confirm asks before a destructive action unless --confirm was given.
func (a *App) confirm(confirmFlag bool, action string) (bool, error) {
	if confirmFlag {
		return true, nil
	}
	if a.JSON {
		return false, errors.New("confirmation required: use --confirm in JSON mode")
	}
	if a.In == os.Stdin && !IsTTY() {
		return false, errors.New("confirmation required but stdin is not a terminal; use --confirm")
	}

	fmt.Fprintf(a.Out, "Are you sure you want to %s? [y/N]: ", action)
	input, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}
