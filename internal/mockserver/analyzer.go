// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	_ "embed"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sajari/fuzzy"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/backend"
)

//go:embed words.txt
var dictionaryData string

// maxCandidates is how many replacements a spelling alert offers.
const maxCandidates = 3

// =============================================================================
// TOKENS
// =============================================================================

// token is one word and its byte offsets in the text.
type token struct {
	text       string
	start, end int
}

// tokenize splits text into words: runs of letters and digits, with
// apostrophes allowed inside a word.
func tokenize(text string) []token {
	var out []token
	start := -1
	for i, r := range text {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r) || (r == '\'' && start >= 0)
		if inWord && start < 0 {
			start = i
		}
		if !inWord && start >= 0 {
			out = append(out, trimToken(text, start, i))
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, trimToken(text, start, len(text)))
	}
	return out
}

// trimToken drops trailing apostrophes ("dogs'" is the word "dogs").
func trimToken(text string, start, end int) token {
	for end > start && text[end-1] == '\'' {
		end--
	}
	return token{text: text[start:end], start: start, end: end}
}

func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

func isAllUpper(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func hasLetter(word string) bool {
	return strings.IndexFunc(word, unicode.IsLetter) >= 0
}

// =============================================================================
// ANALYZER
// =============================================================================

// Analyzer produces alerts, entities, fixes and continuations without a
// language model. Spelling uses a fuzzy model trained on a small English
// word list.
//
// An Analyzer is safe for concurrent use once built.
type Analyzer struct {
	model *fuzzy.Model
	known map[string]bool
}

// NewAnalyzer builds an analyzer on the embedded word list plus extra.
func NewAnalyzer(extra []string) *Analyzer {
	model := fuzzy.NewModel()
	model.SetThreshold(1)
	model.SetDepth(2)

	a := &Analyzer{model: model, known: make(map[string]bool)}
	words := append(strings.Split(dictionaryData, "\n"), extra...)
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || a.known[w] {
			continue
		}
		a.known[w] = true
		model.TrainWord(w)
	}
	return a
}

// Known reports whether word is in the dictionary.
func (a *Analyzer) Known(word string) bool {
	return a.known[strings.ToLower(word)]
}

// Candidates returns up to three dictionary words close to word, nearest
// first.
func (a *Analyzer) Candidates(word string) []string {
	lower := strings.ToLower(word)
	suggestions := a.model.Suggestions(lower, false)
	seen := make(map[string]bool)
	var out []string
	for _, s := range suggestions {
		if s != lower && a.known[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := distance(lower, out[i]), distance(lower, out[j])
		if di != dj {
			return di < dj
		}
		li, lj := len(out[i]) == len(lower), len(out[j]) == len(lower)
		if li != lj {
			return li
		}
		return out[i] < out[j]
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

// distance is the edit distance from a to b, with a swap of two adjacent
// letters counted as one edit.
func distance(a, b string) int {
	if isSwap(a, b) {
		return 1
	}
	return fuzzy.Levenshtein(&a, &b)
}

func isSwap(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) {
		return false
	}
	var diff []int
	for i := range ra {
		if ra[i] != rb[i] {
			diff = append(diff, i)
		}
	}
	return len(diff) == 2 && diff[1] == diff[0]+1 &&
		ra[diff[0]] == rb[diff[1]] && ra[diff[1]] == rb[diff[0]]
}

// Analyze returns the spelling and repeated-word alerts of text and the
// names it mentions.
func (a *Analyzer) Analyze(text string) ([]alert.Alert, []backend.Entity) {
	alerts := a.Spelling(text)
	alerts = append(alerts, Repeats(text)...)
	return alerts, a.Entities(text)
}

// Spelling flags each unknown lower-case word once. Capitalized words are
// taken to be names and all-caps words to be acronyms.
func (a *Analyzer) Spelling(text string) []alert.Alert {
	seen := make(map[string]bool)
	var out []alert.Alert
	for _, t := range tokenize(text) {
		w := t.text
		if seen[w] || utf8.RuneCountInString(w) < 2 || !hasLetter(w) {
			continue
		}
		seen[w] = true
		if isCapitalized(w) || isAllUpper(w) || a.Known(w) || a.Known(strings.TrimSuffix(w, "'s")) {
			continue
		}

		explanation := fmt.Sprintf("Possible typo found: '%s'.", w)
		if c := a.Candidates(w); len(c) > 0 {
			explanation += " Did you mean: " + strings.Join(c, ", ") + "?"
		}
		out = append(out, alert.Alert{
			Type:         alert.KindSpelling,
			Entity:       w,
			OriginalText: w,
			Explanation:  explanation,
		})
	}
	return out
}

// Repeats flags a word immediately repeated across whitespace ("the the").
func Repeats(text string) []alert.Alert {
	tokens := tokenize(text)
	seen := make(map[string]bool)
	var out []alert.Alert
	for i := 1; i < len(tokens); i++ {
		prev, cur := tokens[i-1], tokens[i]
		if !strings.EqualFold(prev.text, cur.text) || !hasLetter(cur.text) {
			continue
		}
		if strings.TrimSpace(text[prev.end:cur.start]) != "" {
			continue
		}
		span := text[prev.start:cur.end]
		if seen[span] {
			continue
		}
		seen[span] = true
		out = append(out, alert.Alert{
			Type:         alert.KindGrammar,
			OriginalText: span,
			Explanation:  fmt.Sprintf("Repeated word: '%s'.", prev.text),
		})
	}
	return out
}

// Entities lists capitalized words that are not dictionary words, in
// order of first mention.
func (a *Analyzer) Entities(text string) []backend.Entity {
	seen := make(map[string]bool)
	var out []backend.Entity
	for _, t := range tokenize(text) {
		name := strings.TrimSuffix(t.text, "'s")
		if !isCapitalized(name) || isAllUpper(name) || utf8.RuneCountInString(name) < 2 || a.Known(name) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, backend.Entity{Name: name, Type: "CHARACTER"})
	}
	return out
}

// =============================================================================
// FIXES
// =============================================================================

// ReplaceWord replaces every whole-word occurrence of word in text.
func ReplaceWord(text, word, replacement string) (string, int) {
	if word == "" {
		return text, 0
	}
	var sb strings.Builder
	last, n := 0, 0
	for _, t := range tokenize(text) {
		if t.text != word {
			continue
		}
		sb.WriteString(text[last:t.start])
		sb.WriteString(replacement)
		last = t.end
		n++
	}
	if n == 0 {
		return text, 0
	}
	sb.WriteString(text[last:])
	return sb.String(), n
}

// collapseRepeat turns "the the" into "the".
func collapseRepeat(span string) string {
	tokens := tokenize(span)
	if len(tokens) < 2 {
		return span
	}
	return span[:tokens[0].end]
}

// Rewrite proposes a replacement for the text of one alert. ok is false
// when the analyzer has nothing better to offer.
func (a *Analyzer) Rewrite(al alert.Alert) (suggested, explanation string, ok bool) {
	switch al.Type.Normalize() {
	case alert.KindSpelling:
		if c, found := al.Suggestion(); found {
			return c, fmt.Sprintf("Replace '%s' with '%s'.", al.OriginalText, c), true
		}
		if c := a.Candidates(al.OriginalText); len(c) > 0 {
			return c[0], fmt.Sprintf("Replace '%s' with '%s'.", al.OriginalText, c[0]), true
		}
	case alert.KindGrammar:
		if fixed := collapseRepeat(al.OriginalText); fixed != al.OriginalText {
			return fixed, "Remove the repeated word.", true
		}
	}
	return al.OriginalText, "No change suggested.", false
}

// Correct applies every fix the analyzer would suggest for text and
// returns the corrected text with the number of alerts applied.
func (a *Analyzer) Correct(text string) (string, int) {
	applied := 0
	for _, al := range Repeats(text) {
		if fixed := collapseRepeat(al.OriginalText); fixed != al.OriginalText {
			if strings.Contains(text, al.OriginalText) {
				text = strings.ReplaceAll(text, al.OriginalText, fixed)
				applied++
			}
		}
	}
	for _, al := range a.Spelling(text) {
		c, ok := al.Suggestion()
		if !ok {
			continue
		}
		var n int
		if text, n = ReplaceWord(text, al.OriginalText, c); n > 0 {
			applied++
		}
	}
	return text, applied
}

// =============================================================================
// CONTINUATIONS
// =============================================================================

var (
	clauseEndings = []string{
		"and the rest of the night was quiet.",
		"before anyone could say a word.",
		"as the wind came up from the harbor.",
		"though nobody in the room believed it.",
	}
	nextSentences = []string{
		"For a long moment nobody spoke.",
		"Somewhere outside, a door closed.",
		"The silence that followed said more than words could.",
		"It was later than any of them had thought.",
	}
)

// Continue proposes the next few words after text. A text that stops
// mid-sentence gets a closing clause; a finished sentence gets a new one.
func Continue(text string) string {
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	if trimmed == "" {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(trimmed))
	pick := int(h.Sum32())

	last, _ := utf8.DecodeLastRuneInString(trimmed)
	switch last {
	case '.', '!', '?', '"', '\'':
		return nextSentences[pick%len(nextSentences)]
	}
	return clauseEndings[pick%len(clauseEndings)]
}
