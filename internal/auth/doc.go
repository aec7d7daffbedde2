// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth supplies bearer tokens to the API client.
//
// The identity provider owns sign-in and refresh; this package only reads
// the token it leaves behind. A TokenProvider is created once at startup,
// injected into the API client, and closed at exit. Nothing in the chat
// core writes to it.
//
// # Key Types
//
//   - TokenProvider: Read-only token accessor used by the API client
//   - StaticProvider: A fixed token from config or environment
//   - FileProvider: A token file kept fresh with fsnotify
//
// # Usage
//
//	provider, err := auth.NewProvider(cfg.Auth.Token, cfg.Auth.TokenFile)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
// A missing or expired token yields an error wrapping ErrAuthMissing.
package auth
