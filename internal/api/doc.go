// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the studyhall backend.
//
// The client is stateless apart from the token provider it reads on every
// call. It normalizes backend failures into *APIError values that unwrap to
// a small set of sentinels, so callers can branch with errors.Is.
//
// # Endpoints
//
//   - GET    /chats?page=N               ListChats
//   - POST   /chats                      CreateChat
//   - DELETE /chats/{id}                 DeleteChat
//   - GET    /chats/{id}/messages?page=N GetChatMessages
//   - POST   /chats/{id}/ask             Ask
//   - POST   /documents/upload           UploadFile
//
// # Retries
//
// Only idempotent GETs are retried, on 5xx, 429 and transport errors, with
// exponential backoff. Mutations are attempted once. A missing token fails
// before any request is made.
//
// # Usage
//
//	client := api.NewClient(cfg.API.BaseURL, provider).
//	    WithTimeout(cfg.API.Timeout()).
//	    WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst)
//
//	list, err := client.ListChats(ctx, 1)
package api
