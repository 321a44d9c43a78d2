// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package editor is the terminal shell around an editor session.
//
// The Model owns a text area for typing, a review pane that draws the
// highlighted document, the alert list, the fix dialog and the rewrite
// comparison. Every edit is forwarded to session.ContentChanged; changes the
// session makes on its own (fixes, accepted continuations, timer-driven
// status updates) arrive as events and are pulled back into the text area.
//
// # Keys
//
//	ctrl+a  analyze          ctrl+f  fix selected alert
//	tab     accept ghost     ctrl+g  rewrite whole document
//	ctrl+n  next alert       ctrl+r  toggle review pane
//	ctrl+p  previous alert   ctrl+s  save file
//	ctrl+d  dismiss alert    ctrl+q  quit
//
// In the fix dialog, typing edits the suggestion, enter applies it and esc
// cancels.
//
// # Usage
//
//	m := editor.New(editor.Options{Session: s, Theme: theme, Path: path})
//	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
package editor
