// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package compare

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCountsLineChanges(t *testing.T) {
	c := New("line1\nline2\nline3", "line1\nmodified\nline3\nline4")

	if c.Stats.Additions != 2 {
		t.Errorf("Expected 2 additions, got %d", c.Stats.Additions)
	}
	if c.Stats.Deletions != 1 {
		t.Errorf("Expected 1 deletion, got %d", c.Stats.Deletions)
	}
	assert.False(t, c.Identical())
}

func TestNewIdentical(t *testing.T) {
	text := "Same.\nAgain."
	c := New(text, text)

	assert.True(t, c.Identical())
	assert.Empty(t, c.Hunks)
	assert.Zero(t, c.Stats)
	assert.Equal(t, "No changes", c.Summary())
}

func TestLineNumbers(t *testing.T) {
	c := New("a\nb\nc", "a\nc\nd")
	var got []string
	for _, l := range c.Lines {
		got = append(got, l.Op.Prefix()+l.Text)
	}
	assert.Equal(t, []string{" a", "-b", " c", "+d"}, got)

	assert.Equal(t, Line{Op: OpDelete, Text: "b", OldLine: 2}, c.Lines[1])
	assert.Equal(t, Line{Op: OpEqual, Text: "c", OldLine: 3, NewLine: 2}, c.Lines[2])
	assert.Equal(t, Line{Op: OpInsert, Text: "d", NewLine: 3}, c.Lines[3])
}

func TestHunksSplitOnLongContext(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 20; i++ {
		line := string(rune('a' + i))
		oldLines = append(oldLines, line)
		switch i {
		case 1:
			newLines = append(newLines, "B")
		case 15:
			newLines = append(newLines, "P")
		default:
			newLines = append(newLines, line)
		}
	}
	c := New(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))

	require.Len(t, c.Hunks, 2)
	first := c.Hunks[0]
	assert.Equal(t, 1, first.OldStart)
	assert.Equal(t, 5, first.OldCount, "one line before, change, three after")
	assert.Equal(t, 5, first.NewCount)

	second := c.Hunks[1]
	assert.Equal(t, 13, second.OldStart)
	assert.Equal(t, 7, second.OldCount)
}

func TestHunksMergeNearbyChanges(t *testing.T) {
	c := New("a\nb\nc\nd\ne", "A\nb\nc\nd\nE")
	require.Len(t, c.Hunks, 1)
	assert.Equal(t, 5, c.Hunks[0].OldCount)
}

func TestUnified(t *testing.T) {
	c := New("The cat sat.\nIt purred.", "The cat slept.\nIt purred.")
	want := "--- a/ch1.txt\n" +
		"+++ b/ch1.txt\n" +
		"@@ -1,2 +1,2 @@\n" +
		"-The cat sat.\n" +
		"+The cat slept.\n" +
		" It purred.\n"
	assert.Equal(t, want, c.Unified("ch1.txt"))
}

func TestInlineSegments(t *testing.T) {
	c := New("The cat sat on the mat.", "The cat slept on the mat.")

	var orig, sugg strings.Builder
	changed := false
	for _, s := range c.Inline {
		if s.Op != OpInsert {
			orig.WriteString(s.Text)
		}
		if s.Op != OpDelete {
			sugg.WriteString(s.Text)
		}
		if s.Op != OpEqual {
			changed = true
		}
	}
	assert.Equal(t, c.Original, orig.String())
	assert.Equal(t, c.Suggested, sugg.String())
	assert.True(t, changed)
}

func TestChangedSentences(t *testing.T) {
	c := New("One stays. Two goes! Three stays?", "One stays. Two went! Three stays?")
	assert.Equal(t, []string{"Two goes!"}, c.ChangedSentences())
	assert.Equal(t, 1, c.Stats.SentencesChanged)
	assert.Equal(t, "1 sentence changed +1 -1", c.Summary())
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "equal", OpEqual.String())
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "delete", OpDelete.String())
	assert.Equal(t, "unknown", Op(9).String())
}
