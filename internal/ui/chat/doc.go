// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive Bubble Tea view of studyhall.
//
// The screen has a session pane on the left and the active session's
// thread on the right, with a composer and status bar at the bottom.
//
// # Architecture
//
// Network work never runs inside Update. Each operation is a tea.Cmd that
// calls into internal/chat and returns a result message. The Directory,
// Thread and Uploader report their own state changes through callbacks;
// those are forwarded into the program through a buffered event channel
// that the model keeps listening on.
//
// # Keys
//
// Session pane (esc or tab to focus):
//
//	up/down   select a session      n   new session
//	d d       delete the session    m   load more sessions
//	o         older messages        c   toggle citations
//	r         retry a failed load   x   dismiss a toast
//
// Composer:
//
//	enter     send the question
//	tab       complete a /command or file path
//	/attach <path...>   queue files       /upload      send queued files
//	/remove <n>         drop a queued file
//	/export [md|json]   write the session to a file
//	/citations /retry /older /new /more /help /quit
//
// Slash commands are parsed and completed by internal/commands.
package chat
