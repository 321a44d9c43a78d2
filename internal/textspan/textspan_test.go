// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package textspan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate_CaseSensitiveFirst(t *testing.T) {
	text := "The cat sat. the cat ran."
	spans := Locate(text, "The cat")

	require.Len(t, spans, 1)
	assert.Equal(t, "The cat", spans[0].Text(text))
	assert.Equal(t, 0, spans[0].Start)
}

func TestLocate_FallsBackToCaseInsensitive(t *testing.T) {
	text := "Hello World, hello world"
	spans := Locate(text, "HELLO WORLD")

	require.Len(t, spans, 2)
	assert.Equal(t, "Hello World", spans[0].Text(text))
	assert.Equal(t, "hello world", spans[1].Text(text))
}

func TestFind_NonOverlappingLeftToRight(t *testing.T) {
	spans := Find("aaaa", "aa", false)

	require.Len(t, spans, 2)
	assert.Equal(t, Span{Start: 0, End: 2}, spans[0])
	assert.Equal(t, Span{Start: 2, End: 4}, spans[1])
}

func TestFind_FoldNonOverlapping(t *testing.T) {
	spans := Find("AaAa", "aa", true)

	require.Len(t, spans, 2)
	assert.Equal(t, Span{Start: 2, End: 4}, spans[1])
}

func TestFind_FoldKeepsByteOffsets(t *testing.T) {
	text := "Ünïcode ÉLAN and élan"
	spans := Find(text, "élan", true)

	require.Len(t, spans, 2)
	assert.Equal(t, "ÉLAN", spans[0].Text(text))
	assert.Equal(t, "élan", spans[1].Text(text))
}

func TestFind_FoldInvalidByteIsOneByteWide(t *testing.T) {
	text := "ab\xffcdef"
	spans := Find(text, "b\uFFFD", true)

	require.Len(t, spans, 1)
	assert.Equal(t, Span{Start: 1, End: 3}, spans[0])
	assert.Equal(t, "b\xff", spans[0].Text(text))
}

func TestLocate_BlankTargets(t *testing.T) {
	for _, target := range []string{"", " ", "\n\t "} {
		assert.Nil(t, Locate("some text here", target), "target %q", target)
	}
}

func TestLocate_NoMatch(t *testing.T) {
	assert.Empty(t, Locate("The shelves were lined with amber bottles.", "potion"))
}

func TestLocate_EmptyText(t *testing.T) {
	assert.Empty(t, Locate("", "potion"))
}

func TestFirst(t *testing.T) {
	sp, ok := First("a Potion, a potion", "potion")
	require.True(t, ok)
	assert.Equal(t, 12, sp.Start)

	_, ok = First("nothing", "potion")
	assert.False(t, ok)
}

func TestSpan_Helpers(t *testing.T) {
	a := Span{Start: 2, End: 5}
	b := Span{Start: 4, End: 8}
	c := Span{Start: 5, End: 6}

	assert.Equal(t, 3, a.Len())
	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
	assert.True(t, Span{Start: 3, End: 3}.Empty())
	assert.Equal(t, "lo", Span{Start: 3, End: 10}.Text("hello"))
	assert.Equal(t, "", Span{Start: 7, End: 10}.Text("hello"))
}

func TestBlank(t *testing.T) {
	assert.True(t, Blank(""))
	assert.True(t, Blank("  \t"))
	assert.False(t, Blank(" x "))
}
