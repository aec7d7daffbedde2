// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the session and message synchronization core.
//
// Three components own all client-side chat state:
//
//   - Directory: the paged, de-duplicated, newest-first session list and
//     the current selection
//   - Thread: the chronological history of the active session, including
//     optimistic sends and synthetic file messages
//   - Uploader: validation, queuing and sequential upload of attachments
//
// Each component guards its state with a mutex that is never held across a
// network call, so methods may be invoked from tea.Cmd goroutines. Every
// failure returns a typed error and leaves the component in the state it
// had before the call.
//
// Pages accumulate in opposite directions: sessions are listed newest
// first and grow downward (appendAtEnd), messages are shown oldest first
// and grow upward as history is paged in (prependAtStart).
package chat
