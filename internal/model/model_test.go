// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleUser, true},
		{RoleAssistant, true},
		{RoleFile, true},
		{Role("system"), false},
		{Role(""), false},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			if got := tc.role.Valid(); got != tc.want {
				t.Errorf("Role(%q).Valid() = %v, want %v", tc.role, got, tc.want)
			}
		})
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleFile.DisplayName() != "File" {
		t.Errorf("DisplayName() = %q, want File", RoleFile.DisplayName())
	}
	if Role("tool").DisplayName() != "tool" {
		t.Errorf("unknown roles should display their raw value")
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewPendingUserMessage(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := NewPendingUserMessage("hello", now)

	if !msg.IsTemporary() {
		t.Errorf("ID %q should be temporary", msg.ID)
	}
	if !strings.HasPrefix(msg.ID, TempIDPrefix) {
		t.Errorf("ID %q should start with %q", msg.ID, TempIDPrefix)
	}
	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want user", msg.Role)
	}
	if !msg.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", msg.CreatedAt, now)
	}
}

func TestNewFileMessage(t *testing.T) {
	doc := Document{
		Title:     "notes.pdf",
		SourceURL: "https://files.example/notes.pdf",
		MimeType:  "application/pdf",
		CreatedAt: time.Now(),
	}
	msg := NewFileMessage("file-1", doc)

	if msg.Role != RoleFile {
		t.Errorf("Role = %q, want file", msg.Role)
	}
	if msg.Content != "Uploaded: notes.pdf" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.Metadata == nil || msg.Metadata.Filename != "notes.pdf" || msg.Metadata.MimeType != "application/pdf" {
		t.Errorf("Metadata = %+v", msg.Metadata)
	}
	if msg.IsTemporary() {
		t.Error("file messages should not be temporary")
	}
}

func TestNewFileMessage_ZeroTimeUsesNow(t *testing.T) {
	msg := NewFileMessage("file-2", Document{Title: "a.txt"})
	if msg.CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
}

func TestMessage_CitationsNilMetadata(t *testing.T) {
	var msg Message
	if msg.Citations() != nil {
		t.Error("Citations() should be nil without metadata")
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSession_Preview(t *testing.T) {
	long := "Photosynthesis converts light energy into chemical energy"
	empty := "   "

	tests := []struct {
		name    string
		session Session
		width   int
		want    string
	}{
		{"no message", Session{ID: "s1"}, 20, "New chat"},
		{"blank message", Session{ID: "s2", LastMessage: &empty}, 20, "New chat"},
		{"truncated", Session{ID: "s3", LastMessage: &long}, 15, "Photosynthes..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.session.Preview(tc.width, "New chat"); got != tc.want {
				t.Errorf("Preview() = %q, want %q", got, tc.want)
			}
		})
	}
}
