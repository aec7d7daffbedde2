// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by NewTheme.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Name         string
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION
	// ==========================================================================

	App         lipgloss.Style
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	// ==========================================================================
	// SESSION PANE
	// ==========================================================================

	SessionPane        lipgloss.Style
	SessionPaneFocused lipgloss.Style
	SessionItem        lipgloss.Style
	SessionSelected    lipgloss.Style
	SessionPreview     lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	FileBubble      lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style
	Pending         lipgloss.Style

	// ==========================================================================
	// CITATIONS
	// ==========================================================================

	CitationHeader  lipgloss.Style
	CitationOrdinal lipgloss.Style
	CitationTitle   lipgloss.Style
	CitationSnippet lipgloss.Style
	Link            lipgloss.Style

	// ==========================================================================
	// COMPOSER AND STATUS
	// ==========================================================================

	Composer        lipgloss.Style
	ComposerFocused lipgloss.Style
	Prompt          lipgloss.Style
	StatusBar       lipgloss.Style
	ShortcutKey     lipgloss.Style
	ShortcutDesc    lipgloss.Style

	// ==========================================================================
	// FEEDBACK
	// ==========================================================================

	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

// NewTheme creates a theme. name is ThemeDark or ThemeLight; anything else
// follows the terminal background.
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ThemeDark:
		isDark = true
	case ThemeLight:
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		Name:         ThemeLight,
		IsDark:       isDark,
		ColorProfile: profile,
	}
	if isDark {
		t.Name = ThemeDark
	}
	t.initStyles()
	return t
}

// Color resolves c for the theme's mode.
func (t *Theme) Color(c lipgloss.AdaptiveColor) lipgloss.Color {
	if t.IsDark {
		return lipgloss.Color(c.Dark)
	}
	return lipgloss.Color(c.Light)
}

func (t *Theme) initStyles() {
	c := t.Color

	t.App = lipgloss.NewStyle()

	t.Header = lipgloss.NewStyle().
		Background(c(SurfaceDim)).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Cyan))
	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(c(TextSecondary)).
		Italic(true)

	// Session pane
	t.SessionPane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(c(Overlay)).
		Padding(0, 1)
	t.SessionPaneFocused = t.SessionPane.
		BorderForeground(c(Purple))
	t.SessionItem = lipgloss.NewStyle().
		Foreground(c(TextPrimary))
	t.SessionSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Purple)).
		Background(c(SelectionBg))
	t.SessionPreview = lipgloss.NewStyle().
		Foreground(c(TextMuted))

	// Messages
	t.UserBubble = lipgloss.NewStyle().
		Foreground(c(UserBubbleFg)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(c(UserBubbleBorder)).
		Padding(0, 1).
		MarginLeft(4)
	t.AssistantBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		BorderForeground(c(AssistantBubbleBorder)).
		PaddingLeft(1)
	t.FileBubble = lipgloss.NewStyle().
		Foreground(c(FileBubbleFg)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(c(FileBubbleBorder)).
		Padding(0, 1)
	t.RoleLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(TextSecondary))
	t.Timestamp = lipgloss.NewStyle().
		Foreground(c(TextMuted))
	t.Pending = lipgloss.NewStyle().
		Foreground(c(Amber)).
		Italic(true)

	// Citations
	t.CitationHeader = lipgloss.NewStyle().
		Foreground(c(TextSecondary)).
		Bold(true)
	t.CitationOrdinal = lipgloss.NewStyle().
		Foreground(c(Purple)).
		Bold(true)
	t.CitationTitle = lipgloss.NewStyle().
		Foreground(c(TextPrimary))
	t.CitationSnippet = lipgloss.NewStyle().
		Foreground(c(TextMuted)).
		Italic(true)
	t.Link = lipgloss.NewStyle().
		Foreground(c(LinkColor)).
		Underline(true)

	// Composer and status
	t.Composer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(c(Overlay)).
		Padding(0, 1)
	t.ComposerFocused = t.Composer.
		BorderForeground(c(Cyan))
	t.Prompt = lipgloss.NewStyle().
		Foreground(c(Cyan)).
		Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(c(TextSecondary)).
		Background(c(SurfaceDim)).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(c(Cyan)).
		Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(c(TextMuted))

	// Feedback
	t.Muted = lipgloss.NewStyle().Foreground(c(TextMuted))
	t.Success = lipgloss.NewStyle().Foreground(c(Emerald)).Bold(true)
	t.Warning = lipgloss.NewStyle().Foreground(c(Amber)).Bold(true)
	t.Error = lipgloss.NewStyle().Foreground(c(Rose)).Bold(true)
	t.Info = lipgloss.NewStyle().Foreground(c(Cyan))
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, session pane hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
