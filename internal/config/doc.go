// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for studyhall.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Backend address, timeouts, retries and rate limit
//   - AuthConfig: Where the bearer token comes from
//   - UploadConfig: Attachment validation rules
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (STUDYHALL_*), including those from ./.env
//   - ~/.studyhall/config.toml
//   - ~/.studyhall/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
//	client := api.NewClient(cfg.API.BaseURL, provider).WithTimeout(cfg.API.Timeout())
package config
