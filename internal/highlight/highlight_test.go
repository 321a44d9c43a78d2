// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package highlight

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/document"
)

const chapter = "Elias descended the worn stone steps.\nThe potoin glowed. Elias drank the potoin."

func sampleAlerts() []alert.Alert {
	return []alert.Alert{
		{Type: alert.KindSpelling, OriginalText: "potoin", Explanation: "Possible typo found: 'potoin'. Did you mean: potion?"},
		{Type: alert.KindStyle, OriginalText: "worn stone", Explanation: "Consider a fresher image."},
		{Type: alert.KindInconsistency, OriginalText: "Elias", Explanation: "Elias was called Elian earlier."},
	}
}

func TestClassFor(t *testing.T) {
	tests := []struct {
		kind alert.Kind
		want string
	}{
		{alert.KindSpelling, ClassSpelling},
		{"spelling", ClassSpelling},
		{alert.KindGrammar, ClassGrammar},
		{alert.KindPunctuation, ClassGrammar},
		{alert.KindStyle, ClassGrammar},
		{alert.KindInconsistency, ClassInconsistency},
		{alert.KindPOVShift, ClassGrammar},
		{"SOMETHING_NEW", ClassGrammar},
		{"", ClassGrammar},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassFor(tt.kind), "kind %q", tt.kind)
	}
}

func TestReconcileWrapsEveryOccurrence(t *testing.T) {
	doc := document.FromText(chapter)
	res := New(nil).Reconcile(doc, sampleAlerts())

	assert.Equal(t, Result{Applied: 3, Skipped: 0, Markers: 5}, res)
	assert.Equal(t, chapter, doc.Text())
	require.NoError(t, doc.Validate())

	for _, m := range doc.Markers() {
		assert.NotEmpty(t, m.ID)
		switch m.Text {
		case "potoin":
			assert.Equal(t, ClassSpelling, m.Class)
			assert.Contains(t, m.Tooltip, "Did you mean")
		case "worn stone":
			assert.Equal(t, ClassGrammar, m.Class)
		case "Elias":
			assert.Equal(t, ClassInconsistency, m.Class)
		default:
			t.Errorf("unexpected marker text %q", m.Text)
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	doc := document.FromText(chapter)
	r := New(nil)

	first := r.Reconcile(doc, sampleAlerts())
	layout := doc.Layout()
	second := r.Reconcile(doc, sampleAlerts())

	assert.Equal(t, first, second)
	assert.Equal(t, layout, doc.Layout())
	assert.Equal(t, chapter, doc.Text())
}

func TestReconcileSkipsMissingText(t *testing.T) {
	doc := document.FromText("Nothing to see here.")
	res := New(nil).Reconcile(doc, []alert.Alert{
		{Type: alert.KindGrammar, OriginalText: "vanished phrase", Explanation: "x"},
		{Type: alert.KindGrammar, OriginalText: "   ", Explanation: "blank"},
		{Type: alert.KindGrammar, Explanation: "no text"},
	})

	assert.Equal(t, Result{Skipped: 3}, res)
	assert.Empty(t, doc.Markers())
}

func TestReconcileDedupes(t *testing.T) {
	doc := document.FromText("a teh and teh")
	dup := alert.Alert{Type: alert.KindSpelling, OriginalText: "teh", Explanation: "Did you mean: the?"}
	res := New(nil).Reconcile(doc, []alert.Alert{dup, dup})

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 2, res.Markers)
	assert.Len(t, doc.Markers(), 2)
}

func TestReconcileCaseInsensitiveFallback(t *testing.T) {
	doc := document.FromText("The Dark Forest loomed.")
	res := New(nil).Reconcile(doc, []alert.Alert{
		{Type: alert.KindStyle, OriginalText: "dark forest", Explanation: "cliche"},
	})

	assert.Equal(t, 1, res.Markers)
	markers := doc.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "Dark Forest", markers[0].Text)
	assert.True(t, strings.EqualFold(markers[0].Text, "dark forest"))
}

func TestReconcileInvalidByteStaysInsideMarker(t *testing.T) {
	text := "ab\xffcdef"
	doc := document.FromText(text)
	res := New(nil).Reconcile(doc, []alert.Alert{
		{Type: alert.KindSpelling, OriginalText: "b\uFFFD", Explanation: "odd byte"},
	})

	assert.Equal(t, 1, res.Markers)
	markers := doc.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "b\xff", markers[0].Text)
	assert.Equal(t, text, doc.Text())
}

func TestReconcilePrefersCaseSensitiveMatches(t *testing.T) {
	doc := document.FromText("Rain fell. The rain stopped.")
	New(nil).Reconcile(doc, []alert.Alert{
		{Type: alert.KindStyle, OriginalText: "rain", Explanation: "x"},
	})

	markers := doc.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "rain", markers[0].Text)
}

func TestReconcileNeverNestsMarkers(t *testing.T) {
	doc := document.FromText("the old oak stood")
	res := New(nil).Reconcile(doc, []alert.Alert{
		{Type: alert.KindStyle, OriginalText: "old oak", Explanation: "a"},
		{Type: alert.KindSpelling, OriginalText: "oak", Explanation: "b"},
	})

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, doc.Markers(), 1)
	assert.Equal(t, "old oak", doc.Markers()[0].Text)
}

func TestReconcileUsesFreshIDs(t *testing.T) {
	n := 0
	r := &Reconciler{NewID: func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}}
	doc := document.FromText("one cat, two cat")
	alerts := []alert.Alert{{Type: alert.KindGrammar, OriginalText: "cat", Explanation: "x"}}

	r.Reconcile(doc, alerts)
	first := doc.Markers()
	r.Reconcile(doc, alerts)
	second := doc.Markers()

	require.Len(t, first, 2)
	assert.Equal(t, "id-1", first[0].ID)
	assert.Equal(t, "id-3", second[0].ID)
}

func TestReconcileEmptyAlertsClearsMarkers(t *testing.T) {
	doc := document.FromText(chapter)
	r := New(nil)
	r.Reconcile(doc, sampleAlerts())
	require.NotEmpty(t, doc.Markers())

	res := r.Reconcile(doc, nil)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, doc.Markers())
	assert.Equal(t, chapter, doc.Text())
}
