// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package alert

import (
	"regexp"
	"strings"
)

// =============================================================================
// KINDS
// =============================================================================

// Kind is the category tag the backend attaches to an alert.
// Unknown kinds are kept verbatim.
type Kind string

const (
	KindSpelling      Kind = "SPELLING"
	KindGrammar       Kind = "GRAMMAR"
	KindPunctuation   Kind = "PUNCTUATION"
	KindStyle         Kind = "STYLE"
	KindInconsistency Kind = "INCONSISTENCY"
	KindPOVShift      Kind = "POV_SHIFT"
	KindToneClash     Kind = "TONE_CLASH"
)

// Normalize upper-cases the kind and trims surrounding space.
func (k Kind) Normalize() Kind {
	return Kind(strings.ToUpper(strings.TrimSpace(string(k))))
}

// Label returns the short human label shown next to an alert.
func (k Kind) Label() string {
	switch k.Normalize() {
	case KindSpelling:
		return "Spelling"
	case KindGrammar:
		return "Grammar"
	case KindPunctuation:
		return "Punctuation"
	case KindStyle:
		return "Style"
	case KindInconsistency:
		return "Continuity"
	case KindPOVShift:
		return "Point of View"
	case KindToneClash:
		return "Tone"
	default:
		return "Suggestion"
	}
}

// =============================================================================
// ALERT
// =============================================================================

// Alert is one finding reported by the analysis backend.
type Alert struct {
	Type         Kind   `json:"type" yaml:"type" msgpack:"type"`
	OriginalText string `json:"original_text,omitempty" yaml:"original_text,omitempty" msgpack:"original_text"`
	Explanation  string `json:"explanation" yaml:"explanation" msgpack:"explanation"`
	ID           string `json:"id,omitempty" yaml:"id,omitempty" msgpack:"id"`
	Entity       string `json:"entity,omitempty" yaml:"entity,omitempty" msgpack:"entity"`
}

// Key identifies alerts that would paint the same highlight.
type Key struct {
	Type         Kind
	OriginalText string
	Explanation  string
}

// Key returns the de-duplication key of the alert.
func (a Alert) Key() Key {
	return Key{Type: a.Type, OriginalText: a.OriginalText, Explanation: a.Explanation}
}

// IsSpelling reports whether the alert is a spelling finding.
func (a Alert) IsSpelling() bool {
	return a.Type.Normalize() == KindSpelling
}

// HasText reports whether the alert names non-blank source text.
func (a Alert) HasText() bool {
	return strings.TrimSpace(a.OriginalText) != ""
}

// Dedupe drops alerts whose key was already seen, keeping first-seen order.
func Dedupe(alerts []Alert) []Alert {
	if len(alerts) == 0 {
		return nil
	}
	seen := make(map[Key]struct{}, len(alerts))
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		k := a.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

// =============================================================================
// SPELLING CANDIDATES
// =============================================================================

var didYouMean = regexp.MustCompile(`(?i)did you mean:?\s*([^?]+)\??`)

// SpellingCandidates extracts the replacement words the backend embeds in
// a spelling explanation ("Possible typo found: 'wrod'. Did you mean:
// word, ward?"). It returns nil when the explanation offers none.
func SpellingCandidates(explanation string) []string {
	m := didYouMean.FindStringSubmatch(explanation)
	if m == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(m[1], ",") {
		word := strings.Trim(strings.TrimSpace(part), `"'.`)
		if word != "" {
			out = append(out, word)
		}
	}
	return out
}

// Suggestion returns the first spelling candidate, if any.
func (a Alert) Suggestion() (string, bool) {
	c := SpellingCandidates(a.Explanation)
	if len(c) == 0 {
		return "", false
	}
	return c[0], true
}
