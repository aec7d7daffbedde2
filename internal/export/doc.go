// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a session's history to a shareable file.
//
// # Formats
//
//   - Markdown: frontmatter, one heading per message, numbered sources
//   - JSON: the transcript as the API returned it, oldest message first
//
// # Usage
//
//	t := export.NewTranscript(sessionID, thread.Messages(), client.BaseURL())
//	exporter, err := export.ForFormat("md", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	path, err := export.WriteFile(t, exporter, ".")
package export
