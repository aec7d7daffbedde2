// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the CLI and the TUI.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - TruncateWidth: Display-width aware truncation (CJK safe)
//   - PadRight: Display-width aware padding for tables
//   - SingleLine: Collapses whitespace and newlines for previews
package util
