// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/inkwell-studio/inkwell/internal/compare"
	"github.com/inkwell-studio/inkwell/internal/document"
	"github.com/inkwell-studio/inkwell/internal/ui/styles"
	"github.com/inkwell-studio/inkwell/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the editor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	status := m.renderStatusBar()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	switch m.mode {
	case ModeSuggestion:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.renderSuggestionDialog())
	case ModeCompare:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.renderCompareDialog())
	default:
		body = m.renderBody()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("inkwell")
	name := "untitled"
	if m.path != "" {
		name = filepath.Base(m.path)
	}
	sub := name
	if p := m.sess.Project(); p != "" {
		sub += "  project " + p
	}
	if m.review {
		sub += "  [review]"
	}
	line := title + "  " + m.theme.HeaderSubtitle.Render(sub)
	return m.theme.Header.Width(m.width).MaxWidth(m.width).Render(line)
}

// =============================================================================
// BODY
// =============================================================================

func (m Model) renderBody() string {
	style := m.theme.EditorFocused
	content := m.textarea.View()
	if m.review {
		style = m.theme.Editor
		content = m.preview.View()
	}
	editor := style.Render(content)
	editor = lipgloss.JoinVertical(lipgloss.Left, editor, m.renderGhost())

	if w := m.alertPanelWidth(); w > 0 {
		panel := m.theme.AlertPanel.
			Width(w - 1).
			Height(lipgloss.Height(editor)).
			Render(m.renderAlerts(w - 2))
		return lipgloss.JoinHorizontal(lipgloss.Top, editor, panel)
	}
	return editor
}

// renderGhost shows the pending continuation under the editor.
func (m Model) renderGhost() string {
	if m.snap.Ghost == "" || m.review {
		return ""
	}
	width := m.width - m.alertPanelWidth() - 2
	hint := m.keys.AcceptGhost.Help().Key + ": "
	return " " + m.theme.Ghost.Render(util.TruncateWidth(hint+util.OneLine(m.snap.Ghost), width))
}

// renderAlerts lists the visible alerts; the selected one shows its
// explanation.
func (m Model) renderAlerts(width int) string {
	if width < 4 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(m.theme.AlertTitle.Render(countLabel(len(m.snap.Visible), "alert")))
	sb.WriteString("\n")

	if len(m.snap.Visible) == 0 {
		sb.WriteString(m.theme.AlertEmpty.Render(util.TruncateWidth("Press ctrl+a to analyze", width)))
	}
	for i, ia := range m.snap.Visible {
		label := fmt.Sprintf("%s: %s", ia.Alert.Type.Label(), util.OneLine(ia.Alert.OriginalText))
		label = util.PadRight(util.TruncateWidth(label, width), width)
		if i == m.selected {
			sb.WriteString(m.theme.AlertItemSelected.Render(label))
			if ia.Alert.Explanation != "" {
				sb.WriteString("\n")
				sb.WriteString(m.theme.AlertExplanation.Width(width).Render(ia.Alert.Explanation))
			}
		} else {
			sb.WriteString(m.theme.AlertItem.Render(label))
		}
		sb.WriteString("\n")
	}

	if len(m.snap.Entities) > 0 {
		names := make([]string, 0, len(m.snap.Entities))
		for _, e := range m.snap.Entities {
			names = append(names, e.Name)
		}
		sb.WriteString("\n")
		sb.WriteString(m.theme.AlertTitle.Render("Entities"))
		sb.WriteString("\n")
		sb.WriteString(m.theme.AlertExplanation.Width(width).Render(strings.Join(names, ", ")))
	}
	return sb.String()
}

// renderPreview fills the review pane with the highlighted document.
func (m *Model) renderPreview() {
	doc := m.sess.Document()
	selected := ""
	if a, ok := m.selectedAlert(); ok {
		selected = a.OriginalText
	}
	content := renderDocument(m.theme, doc, selected, m.snap.Ghost)
	if m.preview.Width > 0 {
		content = m.theme.Renderer().NewStyle().Width(m.preview.Width).Render(content)
	}
	m.preview.SetContent(content)
}

// renderDocument draws every block with its highlighted runs. Runs whose
// text matches selected are drawn reversed. ghost is appended to the last
// block.
func renderDocument(theme *styles.Theme, doc *document.Document, selected, ghost string) string {
	lines := make([]string, len(doc.Blocks))
	for i, b := range doc.Blocks {
		var sb strings.Builder
		for _, r := range b.Runs {
			if r.Marker == nil {
				sb.WriteString(r.Text)
				continue
			}
			style := theme.HighlightStyle(r.Marker.Class)
			if selected != "" && strings.EqualFold(r.Text, selected) {
				style = style.Reverse(true)
			}
			sb.WriteString(style.Render(r.Text))
		}
		lines[i] = sb.String()
	}
	if ghost != "" && len(lines) > 0 {
		last := len(lines) - 1
		sep := ""
		if lines[last] != "" && !strings.HasSuffix(lines[last], " ") {
			sep = " "
		}
		lines[last] += sep + theme.Ghost.Render(ghost)
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// DIALOGS
// =============================================================================

func (m Model) dialogWidth() int {
	w := m.width * 2 / 3
	if w < 30 {
		w = 30
	}
	return w
}

func (m Model) renderSuggestionDialog() string {
	p := m.snap.Pending
	width := m.dialogWidth() - 6
	var sb strings.Builder

	title := "Suggestion"
	if p != nil && p.AlertType != "" {
		title = p.AlertType.Label() + " suggestion"
	}
	sb.WriteString(m.theme.DialogTitle.Render(title))
	sb.WriteString("\n\n")
	if p != nil {
		sb.WriteString(m.theme.DialogOriginal.Width(width).Render(p.OriginalText))
		sb.WriteString("\n\n")
	}
	sb.WriteString(m.dialog.View())
	if p != nil && p.Explanation != "" {
		sb.WriteString("\n\n")
		sb.WriteString(m.theme.AlertExplanation.Width(width).Render(p.Explanation))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.renderHelp(m.keys.DialogHelp()))

	return m.theme.Dialog.Width(m.dialogWidth()).Render(sb.String())
}

func (m Model) renderCompareDialog() string {
	var sb strings.Builder
	title := "Suggested rewrite"
	if m.comparison != nil {
		title += "  " + m.comparison.Summary()
	}
	sb.WriteString(m.theme.DialogTitle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.diff.View())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderHelp(append(m.keys.DialogHelp(), m.keys.Down)))
	return m.theme.Dialog.Width(m.dialogWidth()).Render(sb.String())
}

// renderComparison draws the hunks of cmp, one styled line per diff line.
func (m Model) renderComparison(cmp *compare.Comparison) string {
	var sb strings.Builder
	for i, h := range cmp.Hunks {
		if i > 0 {
			sb.WriteString(m.theme.DiffContext.Render("..."))
			sb.WriteString("\n")
		}
		for _, l := range h.Lines {
			text := l.Op.Prefix() + " " + l.Text
			switch l.Op {
			case compare.OpInsert:
				sb.WriteString(m.theme.DiffInsert.Render(text))
			case compare.OpDelete:
				sb.WriteString(m.theme.DiffDelete.Render(text))
			default:
				sb.WriteString(m.theme.DiffContext.Render(text))
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	label := m.snap.Status.String()
	parts := []string{m.theme.StatusStyle(m.snap.Status).Render(label)}

	if m.busy() {
		frame := styles.DotsSpinner.Frame(m.now().Sub(m.busySince))
		what := "Analyzing"
		switch {
		case m.fixing:
			what = "Fixing"
		case m.generating:
			what = "Rewriting"
		}
		parts = append(parts, m.theme.StatusAnalyzing.Render(what+frame))
	}

	meta := fmt.Sprintf("%s  %s  %d min read",
		countLabel(len(m.snap.Visible), "alert"),
		countLabel(m.snap.Words, "word"),
		m.snap.ReadingMinutes)
	parts = append(parts, m.theme.StatusMeta.Render(meta))

	if m.flash != "" {
		if m.flashIsError {
			parts = append(parts, m.theme.ErrorText.Render(m.flash))
		} else {
			parts = append(parts, m.theme.InfoText.Render(m.flash))
		}
	}

	left := strings.Join(parts, "  ")
	if m.mode == ModeEdit && m.theme.GetLayoutMode() == styles.LayoutWide {
		help := m.renderHelp(m.keys.ShortHelp())
		gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(help)
		if gap >= 2 {
			left += strings.Repeat(" ", gap) + help
		}
	}
	return m.theme.StatusBar.Width(m.width).MaxWidth(m.width).Render(left)
}

func (m Model) renderHelp(bindings []key.Binding) string {
	items := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		items = append(items, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(items, "  ")
}
