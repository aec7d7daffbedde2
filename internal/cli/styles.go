// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for CLI output.
//
// Colors are dropped automatically when stdout is not a terminal or
// NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

var (
	// TitleStyle is used for command titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for hints and secondary text
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// RoleStyles color message authors.
	RoleStyles = map[string]lipgloss.Style{
		"user":      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		"assistant": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82")),
		"file":      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	}
)

// RenderSeparator renders a horizontal rule. Default width is 60.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return DimStyle.Render(strings.Repeat("-", w))
}

// RenderLabel renders a label padded for a key/value listing.
func RenderLabel(label string) string {
	return LabelStyle.Render(label + ":")
}
