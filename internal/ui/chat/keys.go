// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keyboard bindings of the chat view.
type KeyMap struct {
	// Global
	Quit     key.Binding
	Focus    key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Composer
	Submit   key.Binding
	Blur     key.Binding
	Complete key.Binding

	// Session pane
	Up              key.Binding
	Down            key.Binding
	Open            key.Binding
	NewSession      key.Binding
	DeleteSession   key.Binding
	LoadMore        key.Binding
	Older           key.Binding
	ToggleCitations key.Binding
	Retry           key.Binding
	Dismiss         key.Binding
	QuitPane        key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Complete: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "complete /command"),
		),
		Blur: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "sessions"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "i"),
			key.WithHelp("enter", "write"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		DeleteSession: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d d", "delete"),
		),
		LoadMore: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "more"),
		),
		Older: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "older"),
		),
		ToggleCitations: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "citations"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss"),
		),
		QuitPane: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// PaneHelp returns the bindings shown while the session pane has focus.
func (k KeyMap) PaneHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.NewSession, k.DeleteSession, k.LoadMore, k.ToggleCitations, k.Retry, k.QuitPane}
}

// ComposerHelp returns the bindings shown while the composer has focus.
func (k KeyMap) ComposerHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Blur, k.Focus, k.PageUp, k.PageDown, k.Quit}
}
