// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps the client's local state in SQLite.
//
// The backend owns sessions and messages; this store only remembers what
// the client itself needs between runs.
//
// # Key Types
//
//   - StateStore: SQLite-backed store
//   - UploadRecord: One attempted upload, kept for the uploads command
//
// # Usage
//
//	store, err := storage.Open(storage.DefaultPath())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	last, err := store.LastSession(ctx, client.BaseURL())
//
// # Storage Location
//
// The database lives at ~/.studyhall/state.db unless [storage] path is set.
package storage
