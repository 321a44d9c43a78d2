// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/inkwell-studio/inkwell/internal/alert"
)

// =============================================================================
// HTML IMPORT
// =============================================================================

// markerSuffix identifies highlight spans in editor HTML.
const markerSuffix = "-highlight"

// blockAtoms are the elements that start a new line in the plain-text form.
var blockAtoms = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Blockquote: true,
	atom.Pre:        true,
	atom.Section:    true,
	atom.Article:    true,
}

// FromHTML parses contenteditable-style HTML into a document. Spans whose
// class ends in "-highlight" become markers; any other inline markup
// contributes only its text.
func FromHTML(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := &htmlBuilder{}
	b.walk(root)
	b.flush(false)

	d := &Document{Blocks: b.blocks}
	if len(d.Blocks) == 0 {
		d.Blocks = []Block{{}}
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

type htmlBuilder struct {
	blocks     []Block
	runs       []Run
	depth      int // open block elements
	afterBreak bool
}

func (b *htmlBuilder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.text(n.Data)
		return
	case html.ElementNode:
		switch {
		case n.DataAtom == atom.Br:
			b.flush(true)
			b.afterBreak = true
			return
		case n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Head:
			return
		case n.DataAtom == atom.Span:
			if class := attr(n, "class"); isMarkerClass(class) {
				b.marker(n, class)
				return
			}
		case blockAtoms[n.DataAtom]:
			b.flush(false)
			start := len(b.blocks)
			b.afterBreak = false
			b.depth++
			b.children(n)
			b.depth--
			b.flush(!b.afterBreak && len(b.blocks) == start)
			b.afterBreak = false
			return
		}
	}
	b.children(n)
}

func (b *htmlBuilder) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
}

func (b *htmlBuilder) text(s string) {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	if strings.TrimSpace(s) == "" && len(b.runs) == 0 && b.depth == 0 {
		// Formatting whitespace between block elements.
		return
	}
	b.afterBreak = false
	b.runs = append(b.runs, Run{Text: s})
}

func (b *htmlBuilder) marker(n *html.Node, class string) {
	text := strings.ReplaceAll(textContent(n), "\n", " ")
	if text == "" {
		return
	}
	b.afterBreak = false
	b.runs = append(b.runs, Run{
		Text: text,
		Marker: &Marker{
			ID:      attr(n, "data-highlight-id"),
			Class:   class,
			Tooltip: attr(n, "title"),
			Kind:    kindForClass(class),
		},
	})
}

// flush closes the current line. Empty or whitespace-only lines are kept
// only when keepEmpty is set, so a trailing <br> inside a paragraph or the
// indentation around nested blocks does not add a blank line.
func (b *htmlBuilder) flush(keepEmpty bool) {
	if !keepEmpty && blankRuns(b.runs) {
		b.runs = nil
		return
	}
	b.blocks = append(b.blocks, Block{Runs: b.runs})
	b.runs = nil
}

func blankRuns(runs []Run) bool {
	for _, r := range runs {
		if r.Marker != nil || strings.TrimSpace(r.Text) != "" {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isMarkerClass(class string) bool {
	for _, c := range strings.Fields(class) {
		if strings.HasSuffix(c, markerSuffix) {
			return true
		}
	}
	return false
}

func kindForClass(class string) alert.Kind {
	for _, c := range strings.Fields(class) {
		switch c {
		case "spelling-highlight":
			return alert.KindSpelling
		case "inconsistency-highlight":
			return alert.KindInconsistency
		case "grammar-highlight":
			return alert.KindGrammar
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

// =============================================================================
// HTML EXPORT
// =============================================================================

// RenderHTML writes the document as one <p> per block with highlight
// spans. Marker ids are included for web shells; they are not stable
// across reconciliation passes.
func (d *Document) RenderHTML(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, b := range d.Blocks {
		bw.WriteString("<p>")
		if len(b.Runs) == 0 {
			bw.WriteString("<br>")
		}
		for _, r := range b.Runs {
			if r.Marker == nil {
				bw.WriteString(html.EscapeString(r.Text))
				continue
			}
			fmt.Fprintf(bw, `<span class="%s" data-highlight-id="%s" title="%s">%s</span>`,
				html.EscapeString(r.Marker.Class),
				html.EscapeString(r.Marker.ID),
				html.EscapeString(r.Marker.Tooltip),
				html.EscapeString(r.Text))
		}
		bw.WriteString("</p>\n")
	}
	return bw.Flush()
}

// HTML returns RenderHTML output as a string.
func (d *Document) HTML() string {
	var sb strings.Builder
	_ = d.RenderHTML(&sb)
	return sb.String()
}
