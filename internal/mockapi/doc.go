// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mockapi is an in-memory study backend for local development.
//
// It serves the chat and document routes the client depends on, newest
// first and paginated, with canned assistant replies that cite the
// documents uploaded to a chat. Nothing is persisted.
//
// # Usage
//
//	srv := mockapi.New(mockapi.Options{Token: "dev", Seed: true})
//	if err := srv.ListenAndServe(ctx, ":8787"); err != nil {
//	    return err
//	}
//
// The client then points at http://localhost:8787/api.
package mockapi
