// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/studyhall/internal/model"
)

func sampleTranscript() *Transcript {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	url := "https://files.test/cells.pdf"
	msgs := []model.Message{
		model.NewFileMessage("f1", model.Document{Title: "cells.pdf", SourceURL: url, MimeType: "application/pdf", CreatedAt: at}),
		{ID: "u1", Role: model.RoleUser, Content: "What does the\nmitochondria do?", CreatedAt: at.Add(time.Minute)},
		{
			ID: "a1", Role: model.RoleAssistant, Content: "It produces **ATP**.", CreatedAt: at.Add(2 * time.Minute),
			Metadata: &model.Metadata{Citations: []model.Citation{
				{DocumentID: "d1", DocumentTitle: "cells.pdf", Ordinal: 1, Snippet: "the powerhouse\nof the cell", SourceURL: &url},
			}},
		},
	}
	t := NewTranscript("s-42", msgs, "http://localhost:8787/api")
	t.ExportedAt = at.Add(time.Hour)
	return t
}

func TestNewTranscript_TitleFromFirstQuestion(t *testing.T) {
	tr := sampleTranscript()
	if tr.Title != "What does the mitochondria do?" {
		t.Errorf("Title = %q", tr.Title)
	}

	empty := NewTranscript("s-1", nil, "")
	if empty.Title != "Session s-1" {
		t.Errorf("Title = %q, want fallback", empty.Title)
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(out)

	for _, want := range []string{
		"title: What does the mitochondria do?\n",
		"session: s-42\n",
		"source: \"http://localhost:8787/api\"\n",
		"generator: studyhall\n",
		"### You <sub>2025-03-01 09:31:00</sub>",
		"> Uploaded [cells.pdf](https://files.test/cells.pdf)",
		"It produces **ATP**.",
		"**Sources**",
		"1. [cells.pdf](https://files.test/cells.pdf)",
		"   > the powerhouse of the cell",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in:\n%s", want, result)
		}
	}
}

func TestMarkdownExport_OptionsOff(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(out)

	if strings.HasPrefix(result, "---") {
		t.Error("frontmatter written with IncludeMetadata off")
	}
	if strings.Contains(result, "<sub>") {
		t.Error("timestamps written with IncludeTimestamps off")
	}
	if strings.Contains(result, "**Sources**") {
		t.Error("sources written with IncludeCitations off")
	}
}

func TestYAMLNewlineInjection(t *testing.T) {
	tr := sampleTranscript()
	tr.Title = "Test\nInjection: malicious"

	out, err := NewMarkdownExporter(nil).Export(tr)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	for _, line := range strings.Split(string(out), "\n")[:8] {
		if strings.HasPrefix(line, "Injection:") {
			t.Error("newline in title escaped the frontmatter value")
		}
	}
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var decoded Transcript
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.SessionID != "s-42" || len(decoded.Messages) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
	if got := decoded.Messages[2].Citations(); len(got) != 1 || got[0].DocumentTitle != "cells.pdf" {
		t.Errorf("citations = %+v", got)
	}
}

func TestExportEmptyTranscript(t *testing.T) {
	for _, e := range []Exporter{NewMarkdownExporter(nil), NewJSONExporter(nil)} {
		if _, err := e.Export(NewTranscript("s-1", nil, "")); !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("%T: err = %v, want ErrEmptyTranscript", e, err)
		}
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		name    string
		wantExt string
		wantErr bool
	}{
		{"md", ".md", false},
		{"Markdown", ".md", false},
		{"", ".md", false},
		{"json", ".json", false},
		{"html", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ForFormat(tt.name, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("err = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForFormat: %v", err)
			}
			if e.FileExtension() != tt.wantExt {
				t.Errorf("ext = %q, want %q", e.FileExtension(), tt.wantExt)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	tr := sampleTranscript()

	path, err := WriteFile(tr, NewMarkdownExporter(nil), dir)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	want := filepath.Join(dir, "studyhall_What_does_the_mitochondria_do-_20250301_103000.md")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "# What does the mitochondria do?") {
		t.Errorf("unexpected content:\n%s", data)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a/b\\c:d", "a-b-c-d"},
		{"two words\ttab", "two_words_tab"},
		{"", "session"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
