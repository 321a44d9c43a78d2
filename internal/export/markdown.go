// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports reports as Markdown with one alert table per
// file.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts reports to Markdown.
func (e *MarkdownExporter) Export(reports []*Report) ([]byte, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("no reports to export")
	}

	var sb strings.Builder
	now := e.options.now()

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString("title: Inkwell report\n")
		sb.WriteString(fmt.Sprintf("date: %s\n", now.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("files: %d\n", len(reports)))
		sb.WriteString(fmt.Sprintf("alerts: %d\n", Total(reports)))
		sb.WriteString("generator: inkwell\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString("# Inkwell report\n\n")

	for i, r := range reports {
		if r == nil {
			return nil, fmt.Errorf("report %d is nil", i)
		}
		e.writeReport(&sb, r)
	}

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("*Generated by inkwell on %s*\n", now.Format("January 2, 2006 at 3:04 PM")))
	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeReport(sb *strings.Builder, r *Report) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdown(r.File)))

	if r.Error != "" {
		sb.WriteString(fmt.Sprintf("> **Error**: %s\n\n", r.Error))
		return
	}

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("- **Words**: %d\n", r.Words))
		sb.WriteString(fmt.Sprintf("- **Alerts**: %d\n", len(r.Alerts)))
		if counts := CountByKind(r.Alerts); len(counts) > 0 {
			parts := make([]string, len(counts))
			for i, c := range counts {
				parts[i] = fmt.Sprintf("%s %d", c.Kind.Label(), c.Count)
			}
			sb.WriteString(fmt.Sprintf("- **By kind**: %s\n", strings.Join(parts, ", ")))
		}
		sb.WriteString("\n")
	}

	if len(r.Alerts) == 0 {
		sb.WriteString("No issues found.\n\n")
	} else {
		sb.WriteString("| # | Kind | Text | Explanation |\n")
		sb.WriteString("|---|------|------|-------------|\n")
		for i, a := range r.Alerts {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				i+1, a.Type.Label(), tableCell(a.OriginalText), tableCell(a.Explanation)))
		}
		sb.WriteString("\n")
	}

	if len(r.Entities) > 0 {
		sb.WriteString("### Entities\n\n")
		for _, ent := range r.Entities {
			line := fmt.Sprintf("- **%s**", escapeMarkdown(ent.Name))
			if k := ent.Kind(); k != "" {
				line += fmt.Sprintf(" (%s)", k)
			}
			if ent.Description != "" {
				line += ": " + ent.Description
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// tableCell makes s safe inside a Markdown table row.
func tableCell(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
