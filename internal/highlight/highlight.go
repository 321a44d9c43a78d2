// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package highlight

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/document"
	"github.com/inkwell-studio/inkwell/internal/textspan"
)

// Highlight classes understood by the editor shells.
const (
	ClassSpelling      = "spelling-highlight"
	ClassGrammar       = "grammar-highlight"
	ClassInconsistency = "inconsistency-highlight"
)

// ClassFor maps an alert kind to its highlight class. Unknown kinds get
// the grammar class.
func ClassFor(k alert.Kind) string {
	switch k.Normalize() {
	case alert.KindSpelling:
		return ClassSpelling
	case alert.KindGrammar, alert.KindPunctuation, alert.KindStyle:
		return ClassGrammar
	case alert.KindInconsistency:
		return ClassInconsistency
	default:
		return ClassGrammar
	}
}

// Result summarizes one reconciliation pass.
type Result struct {
	Applied int // alerts that produced at least one marker
	Skipped int // alerts with blank or missing text
	Markers int // markers created
}

// Reconciler repaints highlight markers.
type Reconciler struct {
	// NewID returns a fresh marker id. Defaults to a random UUID.
	NewID func() string
	// Logger receives per-alert debug events. Defaults to slog.Default().
	Logger *slog.Logger
}

// New returns a Reconciler with random ids.
func New(logger *slog.Logger) *Reconciler {
	return &Reconciler{Logger: logger}
}

// Reconcile strips every marker from doc and re-applies one marker per
// occurrence of each surviving alert's text. Callers pass only the alerts
// that should be visible (dismissed ones already removed).
func (r *Reconciler) Reconcile(doc *document.Document, alerts []alert.Alert) Result {
	var res Result
	doc.Strip()

	for _, a := range alert.Dedupe(alerts) {
		if !a.HasText() {
			res.Skipped++
			continue
		}

		mk := r.markerFor(a)
		n := doc.WrapAll(func(s string) []textspan.Span {
			return textspan.Find(s, a.OriginalText, false)
		}, mk)
		if n == 0 {
			n = doc.WrapAll(func(s string) []textspan.Span {
				return textspan.Find(s, a.OriginalText, true)
			}, mk)
		}

		if n == 0 {
			res.Skipped++
			r.logger().Debug("HIGHLIGHT_SKIPPED", "type", string(a.Type), "text", a.OriginalText)
			continue
		}
		res.Applied++
		res.Markers += n
	}
	return res
}

func (r *Reconciler) markerFor(a alert.Alert) func() document.Marker {
	class := ClassFor(a.Type)
	return func() document.Marker {
		return document.Marker{
			ID:      r.newID(),
			Class:   class,
			Tooltip: a.Explanation,
			Kind:    a.Type,
		}
	}
}

func (r *Reconciler) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
