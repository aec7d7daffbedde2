// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for scripting.

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope every --json command prints.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	ErrorType string      `json:"error_type,omitempty"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// SessionData is one session in sessions output.
type SessionData struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	LastMessage string    `json:"last_message,omitempty"`
	Selected    bool      `json:"selected,omitempty"`
}

// SessionListData is the sessions list payload.
type SessionListData struct {
	Sessions []SessionData `json:"sessions"`
	Page     int           `json:"page"`
	HasMore  bool          `json:"has_more"`
}

// CitationData is one cited source.
type CitationData struct {
	Ordinal   int    `json:"ordinal"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// MessageData is one message in messages or ask output.
type MessageData struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Citations []CitationData `json:"citations,omitempty"`
}

// MessageListData is the messages payload.
type MessageListData struct {
	SessionID string        `json:"session_id"`
	Messages  []MessageData `json:"messages"`
	Page      int           `json:"page"`
	HasOlder  bool          `json:"has_older"`
}

// UploadResultData is the upload payload.
type UploadResultData struct {
	SessionID string             `json:"session_id"`
	Uploaded  []UploadedFileData `json:"uploaded"`
	Rejected  []UploadIssueData  `json:"rejected,omitempty"`
	Failed    []UploadIssueData  `json:"failed,omitempty"`
}

// UploadedFileData is one accepted document.
type UploadedFileData struct {
	Title     string `json:"title"`
	MimeType  string `json:"mime_type"`
	SourceURL string `json:"source_url,omitempty"`
}

// UploadIssueData names a file and what went wrong.
type UploadIssueData struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// UploadHistoryData is one row of the local upload history.
type UploadHistoryData struct {
	Filename  string    `json:"filename"`
	SessionID string    `json:"session_id"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportData is the export payload.
type ExportData struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
	Format    string `json:"format"`
	Messages  int    `json:"messages"`
}
