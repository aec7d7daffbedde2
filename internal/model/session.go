// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// Session is one persisted conversation thread (a "chat").
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// LastMessage is a denormalized preview of the newest message.
	LastMessage *string `json:"last_message,omitempty"`
}

// Preview returns the last-message preview fitted to width display
// columns, or fallback when the session has no messages yet.
func (s Session) Preview(width int, fallback string) string {
	text := fallback
	if s.LastMessage != nil && strings.TrimSpace(*s.LastMessage) != "" {
		text = *s.LastMessage
	}
	text = strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(text, width, "...")
}

// Page is one page of a paginated collection.
type Page[T any] struct {
	Items      []T
	Page       int
	Total      int
	TotalPages int
	HasMore    bool
}
