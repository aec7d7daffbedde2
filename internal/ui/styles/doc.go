// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the color palette and lipgloss styles of the
studyhall TUI.

# Color System (colors.go)

Every color is a Lip Gloss AdaptiveColor with a light and a dark variant.
A Theme resolves each one to a concrete color for its mode, so the
configured [ui] theme wins over terminal background detection.

  - Purple: assistant messages, selection
  - Cyan: brand, user highlights, info
  - Emerald: success, uploaded files
  - Amber: warnings, pending sends
  - Rose: errors

# Theme (theme.go)

	theme := styles.NewTheme("dark")
	theme.SetSize(width, height)
	fmt.Println(theme.Header.Render("studyhall"))

An empty theme name detects the terminal background with termenv.

# Accessibility

Status indicators are ASCII shapes ([OK], [X], [!], [i]) so that state is
never conveyed by color alone.
*/
package styles
