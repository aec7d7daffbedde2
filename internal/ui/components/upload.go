// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/ui/styles"
	"github.com/jeranaias/studyhall/internal/util"
)

// UploadPanel shows the pending attachments and the progress of the file
// currently uploading.
type UploadPanel struct {
	bar     progress.Model
	file    string
	percent int
}

// NewUploadPanel creates an idle panel.
func NewUploadPanel() UploadPanel {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30
	return UploadPanel{bar: bar}
}

// SetProgress records the uploading file and its 0..100 progress. An empty
// name marks the batch as finished.
func (p *UploadPanel) SetProgress(name string, percent int) {
	p.file = name
	p.percent = min(max(percent, 0), 100)
}

// Progress returns the uploading file and its progress.
func (p UploadPanel) Progress() (string, int) {
	return p.file, p.percent
}

// SetWidth sizes the progress bar for a panel width columns wide.
func (p *UploadPanel) SetWidth(width int) {
	p.bar.Width = min(max(width-40, 10), 40)
}

// View renders the queue and, while uploading, the progress line. It is
// empty when nothing is queued or uploading.
func (p UploadPanel) View(theme *styles.Theme, queue []chat.Candidate, width int) string {
	if len(queue) == 0 && p.file == "" {
		return ""
	}

	var lines []string
	if p.file != "" {
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			theme.Info.Render("Uploading"),
			util.TruncateWidth(p.file, 24),
			p.bar.ViewAs(float64(p.percent)/100),
			theme.Muted.Render(fmt.Sprintf("%3d%%", p.percent)),
		))
	}

	if len(queue) > 0 {
		header := fmt.Sprintf("Attachments (%d)", len(queue))
		if p.file == "" {
			header += theme.Muted.Render("  /upload to send, /remove <n> to drop")
		}
		lines = append(lines, theme.CitationHeader.Render(header))
		nameWidth := max(width-20, 10)
		for i, c := range queue {
			lines = append(lines, fmt.Sprintf("  %s %s %s",
				theme.CitationOrdinal.Render(fmt.Sprintf("%d.", i+1)),
				util.TruncateWidth(c.Name, nameWidth),
				theme.Muted.Render("("+c.SizeFormatted+")"),
			))
		}
	}
	return strings.Join(lines, "\n")
}
