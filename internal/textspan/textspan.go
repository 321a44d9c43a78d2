// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package textspan

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// =============================================================================
// SPAN
// =============================================================================

// Span is a half-open byte range [Start, End) inside a string.
type Span struct {
	Start int
	End   int
}

// Len returns the length of the span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Text returns the part of text covered by the span.
// Out-of-range spans are clamped.
func (s Span) Text(text string) string {
	start, end := s.Start, s.End
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return ""
	}
	return text[start:end]
}

// =============================================================================
// LOCATING
// =============================================================================

// Blank reports whether s is empty or whitespace only.
func Blank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// Locate returns every non-overlapping occurrence of target in text.
// A case-sensitive pass runs first; a case-insensitive pass runs only if
// the first one finds nothing.
func Locate(text, target string) []Span {
	if spans := Find(text, target, false); len(spans) > 0 {
		return spans
	}
	return Find(text, target, true)
}

// Find returns every non-overlapping occurrence of target in text, left
// to right. When fold is true, runes are compared under Unicode case
// folding.
func Find(text, target string, fold bool) []Span {
	if Blank(target) || len(text) == 0 {
		return nil
	}
	if fold {
		return findFold(text, target)
	}

	var spans []Span
	offset := 0
	for offset <= len(text)-len(target) {
		idx := strings.Index(text[offset:], target)
		if idx < 0 {
			break
		}
		start := offset + idx
		spans = append(spans, Span{Start: start, End: start + len(target)})
		offset = start + len(target)
	}
	return spans
}

// First returns the first occurrence of target, preferring a
// case-sensitive match. ok is false when there is none.
func First(text, target string) (Span, bool) {
	spans := Locate(text, target)
	if len(spans) == 0 {
		return Span{}, false
	}
	return spans[0], true
}

// =============================================================================
// CASE-INSENSITIVE MATCHING
// =============================================================================

// foldedRune is one rune of a string in folded form, with the byte range
// it occupies in the original string.
type foldedRune struct {
	key   string
	start int
	end   int
}

// foldRunes folds s rune by rune so matches can be mapped back to byte
// offsets of the unfolded text. An invalid byte decodes as U+FFFD but
// still covers only the one byte it was read from.
func foldRunes(c cases.Caser, s string) []foldedRune {
	out := make([]foldedRune, 0, utf8.RuneCountInString(s))
	for i, r := range s {
		_, size := utf8.DecodeRuneInString(s[i:])
		var key string
		if r < utf8.RuneSelf {
			key = string(unicode.ToLower(r))
		} else {
			key = c.String(string(r))
		}
		out = append(out, foldedRune{key: key, start: i, end: i + size})
	}
	return out
}

func findFold(text, target string) []Span {
	// Casers carry state and are not shared between calls.
	c := cases.Fold()
	tx := foldRunes(c, text)
	tg := foldRunes(c, target)
	if len(tg) == 0 || len(tx) < len(tg) {
		return nil
	}

	var spans []Span
	i := 0
	for i <= len(tx)-len(tg) {
		matched := true
		for j := range tg {
			if tx[i+j].key != tg[j].key {
				matched = false
				break
			}
		}
		if !matched {
			i++
			continue
		}
		last := tx[i+len(tg)-1]
		spans = append(spans, Span{Start: tx[i].start, End: last.end})
		i += len(tg)
	}
	return spans
}
