// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/studyhall/internal/model"
	"github.com/jeranaias/studyhall/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(t.Title))
		fmt.Fprintf(&sb, "session: %s\n", escapeYAML(t.SessionID))
		if t.Source != "" {
			fmt.Fprintf(&sb, "source: %s\n", escapeYAML(t.Source))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(t.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", t.ExportedAt.Format(time.RFC3339))
		sb.WriteString("generator: studyhall\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(util.SingleLine(t.Title)))

	for i, msg := range t.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(e.formatContent(msg))
		sb.WriteString("\n\n")

		if e.options.IncludeCitations && msg.Role == model.RoleAssistant {
			if sources := formatCitations(msg.Citations()); sources != "" {
				sb.WriteString(sources)
				sb.WriteString("\n")
			}
		}

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if e.options.IncludeMetadata {
		sb.WriteString("\n---\n\n")
		fmt.Fprintf(&sb, "*Exported from studyhall on %s*\n",
			t.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatContent renders the message body. Assistant answers are already
// Markdown; file messages become a quoted upload note.
func (e *MarkdownExporter) formatContent(msg model.Message) string {
	content := strings.TrimSpace(msg.Content)
	if msg.Role != model.RoleFile {
		return content
	}

	name := content
	url := ""
	if msg.Metadata != nil {
		if msg.Metadata.Filename != "" {
			name = msg.Metadata.Filename
		}
		url = msg.Metadata.SourceURL
	}
	if url != "" {
		return fmt.Sprintf("> Uploaded [%s](%s)", escapeMarkdown(name), url)
	}
	return "> Uploaded " + escapeMarkdown(name)
}

// formatCitations renders a numbered source list.
func formatCitations(citations []model.Citation) string {
	if len(citations) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("**Sources**\n\n")
	for _, c := range citations {
		title := escapeMarkdown(c.DocumentTitle)
		if c.SourceURL != nil && *c.SourceURL != "" {
			title = fmt.Sprintf("[%s](%s)", title, *c.SourceURL)
		}
		fmt.Fprintf(&sb, "%d. %s\n", c.Ordinal, title)
		if snippet := util.SingleLine(c.Snippet); snippet != "" {
			fmt.Fprintf(&sb, "   > %s\n", snippet)
		}
	}
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break headings and links.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a frontmatter value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
