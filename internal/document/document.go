// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/textspan"
)

// =============================================================================
// TYPES
// =============================================================================

// Marker is the annotation carried by a highlighted run.
type Marker struct {
	ID      string
	Class   string
	Tooltip string
	Kind    alert.Kind
}

// Run is a piece of text inside a block. Marker is nil for plain text.
type Run struct {
	Text   string
	Marker *Marker
}

// Highlighted reports whether the run is wrapped by a marker.
func (r Run) Highlighted() bool {
	return r.Marker != nil
}

// Block is one line of the document.
type Block struct {
	Runs []Run
}

// Text returns the block's text with markup removed.
func (b Block) Text() string {
	if len(b.Runs) == 1 {
		return b.Runs[0].Text
	}
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Document is the editable buffer.
type Document struct {
	Blocks []Block
}

// Placement describes one marker's position in the document.
type Placement struct {
	Block   int
	Start   int // byte offset within the block text
	End     int
	Text    string
	ID      string
	Class   string
	Tooltip string
	Kind    alert.Kind
}

// LayoutEntry is a Placement without the marker id. Two reconciliation
// passes over the same input produce equal layouts.
type LayoutEntry struct {
	Block   int
	Start   int
	End     int
	Text    string
	Class   string
	Tooltip string
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// New returns an empty document with a single empty block.
func New() *Document {
	return &Document{Blocks: []Block{{}}}
}

// FromText builds a document with one plain block per line.
func FromText(s string) *Document {
	d := &Document{}
	d.SetText(s)
	return d
}

// SetText replaces the whole buffer with plain text. All markers are
// dropped.
func (d *Document) SetText(s string) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	d.Blocks = make([]Block, len(lines))
	for i, line := range lines {
		if line != "" {
			d.Blocks[i].Runs = []Run{{Text: line}}
		}
	}
}

// Text returns the plain-text form: block texts joined by newlines.
func (d *Document) Text() string {
	parts := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		parts[i] = b.Text()
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{Blocks: make([]Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		runs := make([]Run, len(b.Runs))
		for j, r := range b.Runs {
			runs[j] = Run{Text: r.Text}
			if r.Marker != nil {
				m := *r.Marker
				runs[j].Marker = &m
			}
		}
		out.Blocks[i].Runs = runs
	}
	return out
}

// Words returns the number of whitespace-delimited words.
func (d *Document) Words() int {
	return len(strings.Fields(d.Text()))
}

// =============================================================================
// STRIP / NORMALIZE
// =============================================================================

// Strip turns every highlighted run back into plain text and merges
// adjacent plain runs. It returns the number of markers removed.
func (d *Document) Strip() int {
	removed := 0
	for i := range d.Blocks {
		for j := range d.Blocks[i].Runs {
			if d.Blocks[i].Runs[j].Marker != nil {
				d.Blocks[i].Runs[j].Marker = nil
				removed++
			}
		}
	}
	d.Normalize()
	return removed
}

// Normalize merges adjacent plain runs and drops empty runs.
func (d *Document) Normalize() {
	for i := range d.Blocks {
		runs := d.Blocks[i].Runs
		merged := runs[:0]
		for _, r := range runs {
			if r.Text == "" {
				continue
			}
			n := len(merged)
			if r.Marker == nil && n > 0 && merged[n-1].Marker == nil {
				merged[n-1].Text += r.Text
				continue
			}
			merged = append(merged, r)
		}
		if len(merged) == 0 {
			merged = nil
		}
		d.Blocks[i].Runs = merged
	}
}

// =============================================================================
// WRAPPING
// =============================================================================

// WrapAll runs find over every plain run and wraps each returned span in
// a new marker from mk. Text already inside a marker is never searched.
// Spans must be sorted, non-overlapping and inside the run text; others
// are ignored. It returns the number of markers created.
func (d *Document) WrapAll(find func(text string) []textspan.Span, mk func() Marker) int {
	created := 0
	for i := range d.Blocks {
		var out []Run
		for _, r := range d.Blocks[i].Runs {
			if r.Marker != nil {
				out = append(out, r)
				continue
			}
			pieces, n := splitRun(r.Text, find(r.Text), mk)
			out = append(out, pieces...)
			created += n
		}
		d.Blocks[i].Runs = out
	}
	return created
}

// splitRun cuts a plain run into plain and highlighted pieces.
func splitRun(text string, spans []textspan.Span, mk func() Marker) ([]Run, int) {
	if len(spans) == 0 {
		return []Run{{Text: text}}, 0
	}
	var out []Run
	cursor, created := 0, 0
	for _, sp := range spans {
		if sp.Empty() || sp.Start < cursor || sp.End > len(text) {
			continue
		}
		if sp.Start > cursor {
			out = append(out, Run{Text: text[cursor:sp.Start]})
		}
		m := mk()
		out = append(out, Run{Text: text[sp.Start:sp.End], Marker: &m})
		created++
		cursor = sp.End
	}
	if cursor < len(text) {
		out = append(out, Run{Text: text[cursor:]})
	}
	return out, created
}

// =============================================================================
// INSPECTION
// =============================================================================

// Markers lists every marker with its position.
func (d *Document) Markers() []Placement {
	var out []Placement
	for bi, b := range d.Blocks {
		offset := 0
		for _, r := range b.Runs {
			if r.Marker != nil {
				out = append(out, Placement{
					Block:   bi,
					Start:   offset,
					End:     offset + len(r.Text),
					Text:    r.Text,
					ID:      r.Marker.ID,
					Class:   r.Marker.Class,
					Tooltip: r.Marker.Tooltip,
					Kind:    r.Marker.Kind,
				})
			}
			offset += len(r.Text)
		}
	}
	return out
}

// Layout lists marker positions without ids.
func (d *Document) Layout() []LayoutEntry {
	markers := d.Markers()
	out := make([]LayoutEntry, len(markers))
	for i, m := range markers {
		out[i] = LayoutEntry{
			Block:   m.Block,
			Start:   m.Start,
			End:     m.End,
			Text:    m.Text,
			Class:   m.Class,
			Tooltip: m.Tooltip,
		}
	}
	return out
}

// Offset converts a (block, byte offset) pair to a byte offset in Text().
func (d *Document) Offset(block, pos int) int {
	off := 0
	for i := 0; i < block && i < len(d.Blocks); i++ {
		off += len(d.Blocks[i].Text()) + 1
	}
	return off + pos
}

// ErrEmptyMarker is reported by Validate for a marker wrapping no text.
var ErrEmptyMarker = errors.New("highlight marker has no text")

// Validate checks the structural invariants of the document.
func (d *Document) Validate() error {
	for bi, b := range d.Blocks {
		for ri, r := range b.Runs {
			if r.Marker != nil && r.Text == "" {
				return fmt.Errorf("block %d run %d: %w", bi, ri, ErrEmptyMarker)
			}
			if strings.Contains(r.Text, "\n") {
				return fmt.Errorf("block %d run %d: run text spans a line break", bi, ri)
			}
		}
	}
	return nil
}
