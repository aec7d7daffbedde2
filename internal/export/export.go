// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/studyhall/internal/model"
	"github.com/jeranaias/studyhall/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// ErrUnsupportedFormat is returned by ForFormat for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("session has no messages")

// Exporter renders a transcript in one file format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the extension including the dot, e.g. ".md".
	FileExtension() string

	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds the frontmatter and footer.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool

	// IncludeCitations lists the sources under assistant answers.
	IncludeCitations bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeCitations:  true,
	}
}

// ForFormat returns the exporter for a format name ("md", "markdown" or
// "json").
func ForFormat(name string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md", "":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (use md or json)", ErrUnsupportedFormat, name)
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is one session's messages, oldest first.
type Transcript struct {
	SessionID  string          `json:"session_id"`
	Title      string          `json:"title"`
	Source     string          `json:"source,omitempty"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []model.Message `json:"messages"`
}

// titleWidth bounds the derived title.
const titleWidth = 60

// NewTranscript builds a transcript titled after the first question.
func NewTranscript(sessionID string, messages []model.Message, source string) *Transcript {
	title := "Session " + sessionID
	for _, m := range messages {
		if m.Role == model.RoleUser && strings.TrimSpace(m.Content) != "" {
			title = util.TruncateWidth(util.SingleLine(m.Content), titleWidth)
			break
		}
	}
	return &Transcript{
		SessionID:  sessionID,
		Title:      title,
		Source:     source,
		ExportedAt: time.Now(),
		Messages:   messages,
	}
}

func (t *Transcript) validate() error {
	if t == nil {
		return errors.New("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// WriteFile exports t into dir and returns the written path. The file name
// is derived from the title and the export time.
func WriteFile(t *Transcript, exporter Exporter, dir string) (string, error) {
	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	filename := fmt.Sprintf("studyhall_%s_%s%s",
		sanitizeFilename(t.Title),
		t.ExportedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)
	path := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names on
// common platforms.
func sanitizeFilename(s string) string {
	const maxLen = 50
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
