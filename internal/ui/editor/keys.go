// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the editor's keyboard bindings. Keys not bound here go to
// the text area.
type KeyMap struct {
	Analyze     key.Binding
	AcceptGhost key.Binding
	NextAlert   key.Binding
	PrevAlert   key.Binding
	Dismiss     key.Binding
	Fix         key.Binding
	Generate    key.Binding
	Review      key.Binding
	Save        key.Binding
	Quit        key.Binding

	// Dialogs
	Apply  key.Binding
	Cancel key.Binding
	Up     key.Binding
	Down   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Analyze: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("C-a", "analyze"),
		),
		AcceptGhost: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "accept"),
		),
		NextAlert: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "next"),
		),
		PrevAlert: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "prev"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "dismiss"),
		),
		Fix: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "fix"),
		),
		Generate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "rewrite"),
		),
		Review: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "review"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "esc", "ctrl+c"),
			key.WithHelp("C-q", "quit"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "pgup"),
			key.WithHelp("up", "scroll"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "pgdown"),
			key.WithHelp("down", "scroll"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar while editing.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Analyze, k.NextAlert, k.Fix, k.Dismiss, k.Generate, k.Save, k.Quit}
}

// DialogHelp returns the bindings shown inside dialogs.
func (k KeyMap) DialogHelp() []key.Binding {
	return []key.Binding{k.Apply, k.Cancel}
}
