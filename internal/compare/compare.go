// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package compare

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/inkwell-studio/inkwell/internal/suggest"
)

// =============================================================================
// TYPES
// =============================================================================

// Op is the kind of change a line or segment represents.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

// String returns the op name.
func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Prefix returns the unified-diff prefix for the op.
func (o Op) Prefix() string {
	switch o {
	case OpInsert:
		return "+"
	case OpDelete:
		return "-"
	default:
		return " "
	}
}

// Line is one line of the line-level diff.
type Line struct {
	Op      Op
	Text    string
	OldLine int // 1-based, 0 for inserted lines
	NewLine int // 1-based, 0 for deleted lines
}

// Hunk is a run of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Segment is a piece of the word-level inline diff.
type Segment struct {
	Op   Op
	Text string
}

// Stats counts changed lines and sentences.
type Stats struct {
	Additions        int
	Deletions        int
	SentencesChanged int
}

// Comparison holds both versions of a document and their differences.
type Comparison struct {
	Original      string
	Suggested     string
	AlertsApplied int
	Lines         []Line
	Hunks         []Hunk
	Inline        []Segment
	Stats         Stats
}

// contextLines is the number of unchanged lines kept around each hunk.
const contextLines = 3

// =============================================================================
// COMPUTATION
// =============================================================================

// New compares original with suggested.
func New(original, suggested string) *Comparison {
	c := &Comparison{Original: original, Suggested: suggested}
	dmp := diffmatchpatch.New()

	c.Lines = lineDiff(dmp, original, suggested)
	c.Hunks = groupHunks(c.Lines)
	for _, l := range c.Lines {
		switch l.Op {
		case OpInsert:
			c.Stats.Additions++
		case OpDelete:
			c.Stats.Deletions++
		}
	}

	diffs := dmp.DiffMain(original, suggested, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	for _, d := range diffs {
		c.Inline = append(c.Inline, Segment{Op: opFor(d.Type), Text: d.Text})
	}

	c.Stats.SentencesChanged = len(c.ChangedSentences())
	return c
}

// Identical reports whether the suggestion changes nothing.
func (c *Comparison) Identical() bool {
	return c.Original == c.Suggested
}

// ChangedSentences returns the sentences of the original that do not
// appear verbatim in the suggestion.
func (c *Comparison) ChangedSentences() []string {
	kept := make(map[string]struct{})
	for _, sp := range suggest.Sentences(c.Suggested) {
		kept[sp.Text(c.Suggested)] = struct{}{}
	}
	var out []string
	for _, sp := range suggest.Sentences(c.Original) {
		s := sp.Text(c.Original)
		if _, ok := kept[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func opFor(t diffmatchpatch.Operation) Op {
	switch t {
	case diffmatchpatch.DiffInsert:
		return OpInsert
	case diffmatchpatch.DiffDelete:
		return OpDelete
	default:
		return OpEqual
	}
}

// lineDiff runs the diff over whole lines and numbers the result.
func lineDiff(dmp *diffmatchpatch.DiffMatchPatch, original, suggested string) []Line {
	a, b, table := dmp.DiffLinesToChars(terminate(original), terminate(suggested))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []Line
	oldNo, newNo := 0, 0
	for _, d := range diffs {
		op := opFor(d.Type)
		for _, text := range splitLines(d.Text) {
			l := Line{Op: op, Text: text}
			if op != OpInsert {
				oldNo++
				l.OldLine = oldNo
			}
			if op != OpDelete {
				newNo++
				l.NewLine = newNo
			}
			out = append(out, l)
		}
	}
	return out
}

// terminate ends non-empty text with a newline so a changed last line is
// compared like any other line.
func terminate(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// splitLines splits s into lines without their terminators.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\n")
	}
	return lines
}

// groupHunks cuts the line diff into hunks, each change surrounded by up to
// contextLines unchanged lines. Changes closer than twice that share a hunk.
func groupHunks(lines []Line) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(lines) {
		if lines[i].Op == OpEqual {
			i++
			continue
		}

		start := max(0, i-contextLines)
		end := i
		for end < len(lines) {
			if lines[end].Op != OpEqual {
				end++
				continue
			}
			// Count the unchanged run that follows.
			run := end
			for run < len(lines) && lines[run].Op == OpEqual {
				run++
			}
			if run < len(lines) && run-end <= 2*contextLines {
				end = run
				continue
			}
			end = min(len(lines), end+contextLines)
			break
		}

		hunks = append(hunks, newHunk(lines[start:end]))
		i = end
	}
	return hunks
}

func newHunk(lines []Line) Hunk {
	h := Hunk{Lines: lines}
	for _, l := range lines {
		if l.OldLine > 0 {
			if h.OldStart == 0 {
				h.OldStart = l.OldLine
			}
			h.OldCount++
		}
		if l.NewLine > 0 {
			if h.NewStart == 0 {
				h.NewStart = l.NewLine
			}
			h.NewCount++
		}
	}
	return h
}

// =============================================================================
// FORMATTING
// =============================================================================

// Unified returns the line diff in unified diff format.
func (c *Comparison) Unified(name string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "--- a/%s\n", name)
	fmt.Fprintf(&sb, "+++ b/%s\n", name)
	for _, h := range c.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			sb.WriteString(l.Op.Prefix())
			sb.WriteString(l.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Summary returns a one-line description of the change.
func (c *Comparison) Summary() string {
	if c.Identical() {
		return "No changes"
	}
	parts := []string{fmt.Sprintf("%d sentences changed", c.Stats.SentencesChanged)}
	if c.Stats.SentencesChanged == 1 {
		parts[0] = "1 sentence changed"
	}
	if c.Stats.Additions > 0 {
		parts = append(parts, fmt.Sprintf("+%d", c.Stats.Additions))
	}
	if c.Stats.Deletions > 0 {
		parts = append(parts, fmt.Sprintf("-%d", c.Stats.Deletions))
	}
	return strings.Join(parts, " ")
}
