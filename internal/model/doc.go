// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the chat client.
//
// These are the shapes the remote API returns and the chat core accumulates:
// sessions, messages (including synthetic file messages), citations,
// uploaded documents, and the generic paginated page.
//
// # Key Types
//
//   - Session: One conversation thread owned by the signed-in user
//   - Message: One turn in a session (user, assistant or file)
//   - Citation: A source document backing an assistant answer
//   - Document: The backend's record of a completed upload
//   - Page: One page of a paginated collection
//
// # Usage
//
//	msg := model.NewPendingUserMessage("What is osmosis?", time.Now())
//	if msg.IsTemporary() {
//	    // not yet confirmed by the backend
//	}
package model
