// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/studyhall/internal/chat"
)

// scrollTracker decides when the thread jumps to its newest message: once
// for every change that appended messages, never for paging or removals.
type scrollTracker struct {
	scrolls int
}

// observe reports whether c should scroll to the bottom.
func (s *scrollTracker) observe(c chat.Change) bool {
	if c.Added <= 0 {
		return false
	}
	s.scrolls++
	return true
}
