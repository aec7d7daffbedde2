// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the chat client.
package model

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleFile marks a synthetic message recording a completed upload.
	RoleFile Role = "file"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleFile:
		return "File"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleFile:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// TempIDPrefix prefixes client-generated ids of optimistic messages.
const TempIDPrefix = "temp-"

// Citation references a source document backing an assistant answer.
type Citation struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Ordinal       int     `json:"ordinal"`
	Snippet       string  `json:"snippet"`
	SourceURL     *string `json:"source_url,omitempty"`
}

// Metadata is the optional structured payload of a message.
// File messages carry SourceURL, Filename and MimeType; assistant
// messages may carry Citations.
type Metadata struct {
	SourceURL string     `json:"source_url,omitempty"`
	Filename  string     `json:"filename,omitempty"`
	MimeType  string     `json:"mime_type,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
}

// Message is one turn in a session's history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// NewTempID returns a temporary id for an optimistic message created at t.
func NewTempID(t time.Time) string {
	return TempIDPrefix + strconv.FormatInt(t.UnixNano(), 10)
}

// NewPendingUserMessage creates the optimistic entry for text sent at now.
func NewPendingUserMessage(text string, now time.Time) Message {
	return Message{
		ID:        NewTempID(now),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: now,
	}
}

// NewFileMessage creates the synthetic message announcing a completed upload.
func NewFileMessage(id string, doc Document) Message {
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return Message{
		ID:        id,
		Role:      RoleFile,
		Content:   "Uploaded: " + doc.Title,
		CreatedAt: created,
		Metadata: &Metadata{
			SourceURL: doc.SourceURL,
			Filename:  doc.Title,
			MimeType:  doc.MimeType,
		},
	}
}

// IsTemporary reports whether the message still carries a client id.
func (m Message) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Citations returns the message citations, or nil.
func (m Message) Citations() []Citation {
	if m.Metadata == nil {
		return nil
	}
	return m.Metadata.Citations
}

// =============================================================================
// DOCUMENT TYPE
// =============================================================================

// Document is the backend's record of an uploaded file.
type Document struct {
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}
