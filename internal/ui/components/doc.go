// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable view pieces for the studyhall TUI.
//
// # Key Types
//
//   - ToastManager: non-blocking, auto-dismissing notifications
//   - CitationList: collapsible sources of one assistant answer
//   - UploadPanel: pending attachments and upload progress
//
// Components hold no network state. The chat model feeds them data and
// renders them with the active styles.Theme.
package components
