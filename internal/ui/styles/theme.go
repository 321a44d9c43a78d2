// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/inkwell-studio/inkwell/internal/highlight"
	"github.com/inkwell-studio/inkwell/internal/schedule"
)

// Theme names accepted by NewTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme holds all the styled components for the editor.
type Theme struct {
	Name   string
	IsDark bool

	// Layout dimensions
	Width  int
	Height int

	renderer *lipgloss.Renderer

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// EDITOR STYLES
	// ==========================================================================

	Editor        lipgloss.Style
	EditorFocused lipgloss.Style
	Ghost         lipgloss.Style

	// Highlight classes
	Spelling      lipgloss.Style
	Grammar       lipgloss.Style
	Inconsistency lipgloss.Style

	// ==========================================================================
	// ALERT LIST STYLES
	// ==========================================================================

	AlertPanel        lipgloss.Style
	AlertTitle        lipgloss.Style
	AlertItem         lipgloss.Style
	AlertItemSelected lipgloss.Style
	AlertExplanation  lipgloss.Style
	AlertEmpty        lipgloss.Style

	// ==========================================================================
	// DIALOG STYLES
	// ==========================================================================

	Dialog         lipgloss.Style
	DialogTitle    lipgloss.Style
	DialogOriginal lipgloss.Style
	DialogHint     lipgloss.Style

	// Comparison view
	DiffInsert  lipgloss.Style
	DiffDelete  lipgloss.Style
	DiffContext lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar       lipgloss.Style
	StatusIdle      lipgloss.Style
	StatusTyping    lipgloss.Style
	StatusAnalyzing lipgloss.Style
	StatusSynced    lipgloss.Style
	StatusError     lipgloss.Style
	StatusMeta      lipgloss.Style
	ShortcutKey     lipgloss.Style
	ShortcutDesc    lipgloss.Style

	// Messages
	ErrorText lipgloss.Style
	InfoText  lipgloss.Style
}

// NewTheme creates the named theme rendering to stdout. Unknown names fall
// back to the light theme.
func NewTheme(name string) *Theme {
	return NewThemeFor(name, os.Stdout)
}

// NewThemeFor creates the named theme for output w. The color profile is
// detected from w, so a non-terminal writer renders plain text.
func NewThemeFor(name string, w io.Writer) *Theme {
	r := lipgloss.NewRenderer(w)
	t := &Theme{Name: ThemeLight, renderer: r}
	if name == ThemeDark {
		t.Name = ThemeDark
		t.IsDark = true
	}
	r.SetHasDarkBackground(t.IsDark)
	t.initStyles()
	return t
}

// Renderer returns the renderer the theme's styles are bound to.
func (t *Theme) Renderer() *lipgloss.Renderer {
	return t.renderer
}

func (t *Theme) style() lipgloss.Style {
	return t.renderer.NewStyle()
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = t.style().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = t.style().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = t.style().
		Foreground(TextSecondary).
		Italic(true)

	// Editor
	t.Editor = t.style().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.EditorFocused = t.Editor.
		BorderForeground(Cyan)

	t.Ghost = t.style().
		Foreground(TextMuted).
		Italic(true)

	t.Spelling = t.style().
		Foreground(Rose).
		Background(SpellingBg).
		Underline(true)

	t.Grammar = t.style().
		Foreground(Amber).
		Background(GrammarBg).
		Underline(true)

	t.Inconsistency = t.style().
		Foreground(Purple).
		Background(InconsistencyBg).
		Underline(true)

	// Alert list
	t.AlertPanel = t.style().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		PaddingLeft(1)

	t.AlertTitle = t.style().
		Bold(true).
		Foreground(TextPrimary)

	t.AlertItem = t.style().
		Foreground(TextPrimary)

	t.AlertItemSelected = t.style().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)

	t.AlertExplanation = t.style().
		Foreground(TextSecondary)

	t.AlertEmpty = t.style().
		Foreground(TextMuted).
		Italic(true)

	// Dialogs
	t.Dialog = t.style().
		Background(SurfaceBright).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.DialogTitle = t.style().
		Bold(true).
		Foreground(Purple)

	t.DialogOriginal = t.style().
		Foreground(TextSecondary).
		Strikethrough(true)

	t.DialogHint = t.style().
		Foreground(TextMuted)

	t.DiffInsert = t.style().
		Foreground(Emerald)

	t.DiffDelete = t.style().
		Foreground(Rose).
		Strikethrough(true)

	t.DiffContext = t.style().
		Foreground(TextSecondary)

	// Status bar
	t.StatusBar = t.style().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusIdle = t.style().
		Foreground(TextMuted)

	t.StatusTyping = t.style().
		Foreground(Cyan)

	t.StatusAnalyzing = t.style().
		Foreground(Amber).
		Bold(true)

	t.StatusSynced = t.style().
		Foreground(Emerald).
		Bold(true)

	t.StatusError = t.style().
		Foreground(Rose).
		Bold(true)

	t.StatusMeta = t.style().
		Foreground(TextSecondary)

	t.ShortcutKey = t.style().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = t.style().
		Foreground(TextMuted)

	t.ErrorText = t.style().
		Foreground(ErrorHighContrast).
		Bold(true)

	t.InfoText = t.style().
		Foreground(InfoHighContrast)
}

// HighlightStyle returns the style for a marker class. Unknown classes
// render as grammar marks.
func (t *Theme) HighlightStyle(class string) lipgloss.Style {
	switch class {
	case highlight.ClassSpelling:
		return t.Spelling
	case highlight.ClassInconsistency:
		return t.Inconsistency
	default:
		return t.Grammar
	}
}

// StatusStyle returns the style for a sync status label.
func (t *Theme) StatusStyle(s schedule.Status) lipgloss.Style {
	switch s {
	case schedule.StatusTyping:
		return t.StatusTyping
	case schedule.StatusAnalyzing:
		return t.StatusAnalyzing
	case schedule.StatusSynced:
		return t.StatusSynced
	case schedule.StatusSyncError:
		return t.StatusError
	default:
		return t.StatusIdle
	}
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
	LayoutNarrow LayoutMode = iota // < 60 columns, alert panel hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
