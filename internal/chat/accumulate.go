// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// direction selects where a new page lands relative to accumulated items.
type direction int

const (
	// appendAtEnd grows the list downward (sessions, newest first).
	appendAtEnd direction = iota
	// prependAtStart grows the list upward (messages, oldest first).
	prependAtStart
)

// accumulate merges page into existing without duplicating ids. Items
// already present keep their position; duplicates inside page keep the
// first occurrence. existing is not modified.
func accumulate[T any](existing, page []T, dir direction, key func(T) string) []T {
	seen := make(map[string]struct{}, len(existing)+len(page))
	for _, item := range existing {
		seen[key(item)] = struct{}{}
	}

	fresh := make([]T, 0, len(page))
	for _, item := range page {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		fresh = append(fresh, item)
	}

	out := make([]T, 0, len(existing)+len(fresh))
	if dir == prependAtStart {
		out = append(out, fresh...)
		return append(out, existing...)
	}
	out = append(out, existing...)
	return append(out, fresh...)
}

// reversed returns a reversed copy of items.
func reversed[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}
