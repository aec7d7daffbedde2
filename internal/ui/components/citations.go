// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/studyhall/internal/model"
	"github.com/jeranaias/studyhall/internal/ui/styles"
	"github.com/jeranaias/studyhall/internal/util"
)

// CitationList is the collapsible list of sources under one assistant
// answer. It starts collapsed.
type CitationList struct {
	citations []model.Citation
	expanded  bool
}

// NewCitationList creates a collapsed list ordered by ordinal.
func NewCitationList(citations []model.Citation) *CitationList {
	sorted := make([]model.Citation, len(citations))
	copy(sorted, citations)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })
	return &CitationList{citations: sorted}
}

// Len returns the number of sources.
func (l *CitationList) Len() int { return len(l.citations) }

// Expanded reports whether the sources are shown.
func (l *CitationList) Expanded() bool { return l.expanded }

// Toggle expands or collapses the list and returns the new state.
func (l *CitationList) Toggle() bool {
	l.expanded = !l.expanded
	return l.expanded
}

// View renders the list. A collapsed list is a single summary line; an
// empty list renders nothing.
func (l *CitationList) View(theme *styles.Theme, width int) string {
	if len(l.citations) == 0 {
		return ""
	}

	noun := "sources"
	if len(l.citations) == 1 {
		noun = "source"
	}
	if !l.expanded {
		return theme.CitationHeader.Render(fmt.Sprintf("%d %s", len(l.citations), noun)) +
			theme.Muted.Render("  (c to show)")
	}

	var b strings.Builder
	b.WriteString(theme.CitationHeader.Render(fmt.Sprintf("%d %s", len(l.citations), noun)))
	b.WriteString(theme.Muted.Render("  (c to hide)"))

	textWidth := max(width-6, 10)
	for _, c := range l.citations {
		b.WriteString("\n")
		b.WriteString(theme.CitationOrdinal.Render(fmt.Sprintf("[%d]", c.Ordinal)))
		b.WriteString(" ")
		b.WriteString(theme.CitationTitle.Render(util.TruncateWidth(c.DocumentTitle, textWidth)))
		if c.Snippet != "" {
			b.WriteString("\n    ")
			b.WriteString(theme.CitationSnippet.Render(util.TruncateWidth(util.SingleLine(c.Snippet), textWidth)))
		}
		if c.SourceURL != nil && *c.SourceURL != "" {
			b.WriteString("\n    ")
			b.WriteString(theme.Link.Render(util.TruncateWidth(*c.SourceURL, textWidth)))
		}
	}
	return b.String()
}
