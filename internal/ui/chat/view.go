// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jeranaias/studyhall/internal/model"
	"github.com/jeranaias/studyhall/internal/ui/components"
	"github.com/jeranaias/studyhall/internal/ui/styles"
	"github.com/jeranaias/studyhall/internal/util"
)

// Fixed row counts of the chrome around the message viewport.
const (
	headerHeight   = 1
	statusHeight   = 1
	composerHeight = 3
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) showPane() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// chatWidth is the width of the message column.
func (m Model) chatWidth() int {
	if m.showPane() {
		return max(m.width-sessionPaneWidth, 20)
	}
	return max(m.width, 20)
}

// messageWidth is the width available to a rendered message.
func (m Model) messageWidth() int {
	return max(m.chatWidth()-2, 16)
}

// bodyHeight is the number of rows left for the session pane and viewport.
func (m Model) bodyHeight() int {
	used := headerHeight + statusHeight + composerHeight
	if panel := m.uploads.View(m.theme, m.uploader.Pending(), m.width); panel != "" {
		used += lipgloss.Height(panel)
	}
	if stack := m.toastView(); stack != "" {
		used += lipgloss.Height(stack)
	}
	return max(m.height-used, 3)
}

// layout sizes the viewport for the current window and chrome. A viewport
// showing the newest message keeps showing it.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)
	m.uploads.SetWidth(m.width)
	m.input.Width = max(m.width-8, 10)

	atBottom := m.viewport.AtBottom()
	m.viewport.Width = m.chatWidth()
	m.viewport.Height = m.bodyHeight()
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// refreshViewport re-renders the thread into the viewport.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages(m.messageWidth()))
}

// =============================================================================
// SCREEN
// =============================================================================

func (m Model) render() string {
	sections := []string{m.renderHeader()}

	body := m.viewport.View()
	if m.showPane() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSessionPane(), body)
	}
	sections = append(sections, body)

	if panel := m.uploads.View(m.theme, m.uploader.Pending(), m.width); panel != "" {
		sections = append(sections, panel)
	}
	if stack := m.toastView(); stack != "" {
		sections = append(sections, stack)
	}
	sections = append(sections, m.renderComposer(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("studyhall")
	info := m.backend.BaseURL()
	if id := m.dir.Selected(); id != "" {
		info += "  session " + util.TruncateWidth(id, 12)
	}
	info = util.TruncateWidth(info, max(m.width-lipgloss.Width(title)-4, 0))
	return m.theme.Header.Render(title + " " + m.theme.HeaderInfo.Render(info))
}

func (m Model) renderSessionPane() string {
	style := m.theme.SessionPane
	if m.focus == focusSessions {
		style = m.theme.SessionPaneFocused
	}
	inner := sessionPaneWidth - 4
	height := m.bodyHeight() - 2

	sessions := m.dir.Sessions()
	var lines []string
	switch {
	case len(sessions) == 0 && m.loadingSessions:
		lines = append(lines, m.theme.Muted.Render("Loading sessions..."))
	case len(sessions) == 0:
		lines = append(lines, m.theme.Muted.Render("No sessions yet."), m.theme.Muted.Render("n: new session"))
	default:
		// Two rows per session; keep the cursor in view.
		fit := max((height-1)/2, 1)
		start := 0
		if m.cursor >= fit {
			start = m.cursor - fit + 1
		}
		end := min(start+fit, len(sessions))
		selected := m.dir.Selected()
		for i := start; i < end; i++ {
			lines = append(lines, m.renderSessionItem(sessions[i], i == m.cursor, sessions[i].ID == selected, inner)...)
		}
		if m.dir.HasMore() {
			hint := "m: load more"
			if m.loadingSessions {
				hint = "loading..."
			}
			lines = append(lines, m.theme.Muted.Render(hint))
		}
	}

	return style.Width(sessionPaneWidth - 2).Height(max(height, 1)).Render(strings.Join(lines, "\n"))
}

func (m Model) renderSessionItem(s model.Session, atCursor, selected bool, width int) []string {
	marker := "  "
	if atCursor && m.focus == focusSessions {
		marker = "> "
	}
	preview := s.Preview(width-2, "New session")
	itemStyle := m.theme.SessionItem
	if selected {
		itemStyle = m.theme.SessionSelected
	}
	when := humanize.Time(s.CreatedAt)
	if m.pendingDelete == s.ID {
		when = m.theme.Warning.Render("d again to delete")
	} else {
		when = m.theme.SessionPreview.Render(when)
	}
	return []string{
		itemStyle.Render(marker + preview),
		"  " + when,
	}
}

func (m Model) renderComposer() string {
	style := m.theme.Composer
	if m.focus == focusComposer {
		style = m.theme.ComposerFocused
	}
	return style.Width(max(m.width-2, 10)).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	bindings := m.keys.ComposerHelp()
	if m.focus == focusSessions {
		bindings = m.keys.PaneHelp()
	}

	var left string
	switch {
	case m.thread.Waiting():
		left = m.spinner.View() + " Thinking..."
	case m.uploader.Uploading():
		left = m.spinner.View() + " Uploading..."
	case m.loadingSessions:
		left = m.spinner.View() + " Loading..."
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	help := strings.Join(parts, "  ")
	if left != "" {
		help = left + "  " + help
	}
	return m.theme.StatusBar.Render(util.TruncateWidth(help, max(m.width-2, 0)))
}

func (m Model) toastView() string {
	return components.RenderToastStack(m.theme, m.toasts.Toasts(), m.width, time.Now())
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the thread, oldest first.
func (m Model) renderMessages(width int) string {
	if m.dir.Selected() == "" {
		return m.theme.Muted.Render("No session selected. Press esc then n to start one.")
	}
	msgs := m.thread.Messages()
	if len(msgs) == 0 {
		return m.theme.Muted.Render("No messages yet. Ask a question or /attach a document.")
	}

	sep := "\n\n"
	if m.compact {
		sep = "\n"
	}

	var blocks []string
	if m.thread.HasOlder() {
		blocks = append(blocks, m.theme.Muted.Render("o: load older messages"))
	}
	for _, msg := range msgs {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, sep)
}

func (m Model) renderMessage(msg model.Message, width int) string {
	label := m.theme.RoleLabel.Render(msg.Role.DisplayName())
	if !msg.CreatedAt.IsZero() {
		label += " " + m.theme.Timestamp.Render(msg.CreatedAt.Local().Format("15:04"))
	}

	var body string
	switch msg.Role {
	case model.RoleUser:
		body = m.theme.UserBubble.MaxWidth(width).Render(msg.Content)
		if m.thread.Pending(msg.ID) {
			label += " " + m.theme.Pending.Render("sending...")
		}
	case model.RoleFile:
		body = m.theme.FileBubble.MaxWidth(width).Render(msg.Content)
	default:
		body = m.theme.AssistantBubble.Render(m.renderMarkdown(msg.Content, width))
		if list := m.citations[msg.ID]; list != nil {
			body += "\n" + list.View(m.theme, width)
		} else if cits := msg.Citations(); m.showCitations && len(cits) > 0 {
			body += "\n" + components.NewCitationList(cits).View(m.theme, width)
		}
	}
	return label + "\n" + body
}

// renderMarkdown renders assistant text, falling back to plain text when
// the renderer is unavailable.
func (m Model) renderMarkdown(content string, width int) string {
	if m.markdown == nil {
		return lipgloss.NewStyle().Width(max(width-2, 10)).Render(content)
	}
	out, err := m.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
