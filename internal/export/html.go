// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports reports as a standalone HTML page with embedded CSS.
// Reports that carry a Document are rendered with their highlights.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts reports to HTML.
func (e *HTMLExporter) Export(reports []*Report) ([]byte, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("no reports to export")
	}
	theme := e.options.Theme
	if theme != "dark" {
		theme = "light"
	}
	now := e.options.now()

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString("    <title>Inkwell report</title>\n")
	sb.WriteString("    <meta name=\"generator\" content=\"inkwell\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", now.Format(time.RFC3339)))
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString("        <header class=\"header\">\n")
		sb.WriteString("            <h1>Inkwell report</h1>\n")
		sb.WriteString(fmt.Sprintf("            <p class=\"metadata\">%d files, %d alerts</p>\n", len(reports), Total(reports)))
		sb.WriteString("        </header>\n")
	}

	for i, r := range reports {
		if r == nil {
			return nil, fmt.Errorf("report %d is nil", i)
		}
		e.renderReport(&sb, r)
	}

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Generated by <strong>inkwell</strong> on %s</p>\n",
		now.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderReport(sb *strings.Builder, r *Report) {
	sb.WriteString("        <section class=\"report\">\n")
	sb.WriteString(fmt.Sprintf("            <h2>%s</h2>\n", html.EscapeString(r.File)))

	if r.Error != "" {
		sb.WriteString(fmt.Sprintf("            <p class=\"error\">%s</p>\n", html.EscapeString(r.Error)))
		sb.WriteString("        </section>\n")
		return
	}

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("            <p class=\"metadata\">%d words, %d alerts</p>\n", r.Words, len(r.Alerts)))
	}

	if r.Document != nil {
		sb.WriteString("            <article class=\"chapter\">\n")
		sb.WriteString(r.Document.HTML())
		sb.WriteString("            </article>\n")
	}

	if len(r.Alerts) > 0 {
		sb.WriteString("            <table class=\"alerts\">\n")
		sb.WriteString("                <tr><th>#</th><th>Kind</th><th>Text</th><th>Explanation</th></tr>\n")
		for i, a := range r.Alerts {
			sb.WriteString(fmt.Sprintf("                <tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				i+1,
				html.EscapeString(a.Type.Label()),
				html.EscapeString(a.OriginalText),
				html.EscapeString(a.Explanation)))
		}
		sb.WriteString("            </table>\n")
	} else {
		sb.WriteString("            <p>No issues found.</p>\n")
	}
	sb.WriteString("        </section>\n")
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        .light-theme {
            --bg: #ffffff;
            --text: #1f2328;
            --muted: #656d76;
            --border: #d0d7de;
        }

        .dark-theme {
            --bg: #1a1b26;
            --text: #c0caf5;
            --muted: #565f89;
            --border: #414868;
        }

        body {
            background: var(--bg);
            color: var(--text);
            font-family: Georgia, "Times New Roman", serif;
            line-height: 1.7;
        }

        .container { max-width: 860px; margin: 0 auto; padding: 2rem; }
        .header, .report { margin-bottom: 2rem; }
        .metadata, .footer { color: var(--muted); font-size: 0.9rem; }
        .chapter p { margin-bottom: 1rem; }
        .error { color: #cf222e; }

        .alerts { width: 100%; border-collapse: collapse; margin-top: 1rem; font-size: 0.9rem; }
        .alerts th, .alerts td { border: 1px solid var(--border); padding: 0.4rem; text-align: left; }

        .spelling-highlight { text-decoration: underline wavy #cf222e; }
        .grammar-highlight { text-decoration: underline wavy #0969da; }
        .inconsistency-highlight { background: rgba(191, 135, 0, 0.25); }
    </style>
`
