// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package suggest

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/inkwell-studio/inkwell/internal/textspan"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyOriginal is returned when the flagged text is blank.
	ErrEmptyOriginal = errors.New("suggest: original text is empty")
	// ErrEmptyReplacement is returned when the replacement is blank and the
	// flagged text is nowhere in the document, leaving nothing to delete.
	ErrEmptyReplacement = errors.New("suggest: replacement text is empty")
)

// =============================================================================
// STRATEGIES
// =============================================================================

// Strategy names the cascade branch that produced a Result.
type Strategy int

const (
	StrategyExact Strategy = iota
	StrategyCaseInsensitive
	StrategySentence
	StrategyAppend
)

// String returns the strategy name used in logs.
func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyCaseInsensitive:
		return "case-insensitive"
	case StrategySentence:
		return "sentence"
	case StrategyAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Result is the rewritten text plus where the replacement landed.
type Result struct {
	Text     string
	Strategy Strategy
	Start    int // byte offset of the replacement in Text
	End      int
}

// =============================================================================
// APPLY
// =============================================================================

// Apply rewrites the first reasonable occurrence of original in text to
// final. A blank final deletes the located text; it is rejected only when
// the cascade would fall through to appending.
func Apply(text, original, final string) (Result, error) {
	if textspan.Blank(original) {
		return Result{}, ErrEmptyOriginal
	}
	if textspan.Blank(final) {
		final = ""
	}

	if i := strings.Index(text, original); i >= 0 {
		return splice(text, textspan.Span{Start: i, End: i + len(original)}, final, StrategyExact), nil
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(original))
	if err != nil {
		return Result{}, err
	}
	if loc := re.FindStringIndex(text); loc != nil {
		return splice(text, textspan.Span{Start: loc[0], End: loc[1]}, final, StrategyCaseInsensitive), nil
	}

	needle := collapse(original)
	for _, sp := range Sentences(text) {
		if strings.Contains(collapse(sp.Text(text)), needle) {
			return splice(text, sp, final, StrategySentence), nil
		}
	}

	if final == "" {
		return Result{}, ErrEmptyReplacement
	}
	if text == "" {
		return Result{Text: final, Strategy: StrategyAppend, Start: 0, End: len(final)}, nil
	}
	out := text + " " + final
	return Result{Text: out, Strategy: StrategyAppend, Start: len(text) + 1, End: len(out)}, nil
}

func splice(text string, sp textspan.Span, final string, s Strategy) Result {
	// A deletion leaves no doubled space and no space before punctuation.
	if final == "" && sp.Start > 0 && text[sp.Start-1] == ' ' {
		switch {
		case sp.End < len(text) && text[sp.End] == ' ':
			sp.End++
		case sp.End == len(text) || strings.IndexByte(".,;:!?", text[sp.End]) >= 0:
			sp.Start--
		}
	}
	return Result{
		Text:     text[:sp.Start] + final + text[sp.End:],
		Strategy: s,
		Start:    sp.Start,
		End:      sp.Start + len(final),
	}
}

// collapse lowercases s and squeezes whitespace runs to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// =============================================================================
// SENTENCES
// =============================================================================

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isCloser reports whether r closes a quote or bracket. Closers right after
// a terminator belong to the sentence that just ended.
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '\u201D', '\u2019':
		return true
	}
	return false
}

// Sentences splits text into sentences: maximal runs ending in one or more
// of ". ! ?", plus any closing quotes or brackets that follow. Leading
// whitespace is not part of a sentence; trailing text without a
// terminator forms a final sentence.
func Sentences(text string) []textspan.Span {
	var out []textspan.Span
	start := -1
	terminated := false

	for i, r := range text {
		switch {
		case start < 0:
			if unicode.IsSpace(r) {
				continue
			}
			start = i
			terminated = isTerminator(r)
		case isTerminator(r):
			terminated = true
		case terminated && isCloser(r):
		case terminated:
			out = append(out, textspan.Span{Start: start, End: i})
			start = -1
			terminated = false
			if !unicode.IsSpace(r) {
				start = i
			}
		}
	}

	if start >= 0 {
		end := len(strings.TrimRightFunc(text, unicode.IsSpace))
		out = append(out, textspan.Span{Start: start, End: end})
	}
	return out
}
