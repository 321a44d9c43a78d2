// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ghost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-studio/inkwell/internal/schedule"
)

type fakeBackend struct {
	mu      sync.Mutex
	windows []string
	reply   string
	err     error
}

func (f *fakeBackend) fetch(_ context.Context, window string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, window)
	return f.reply, f.err
}

func (f *fakeBackend) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.windows...)
}

func newTrigger(doc *string, be *fakeBackend) (*Trigger, *schedule.ManualClock) {
	c := schedule.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := New(Config{Clock: c}, func() string { return *doc }, be.fetch)
	return tr, c
}

func TestIdleFiresOneRequestForTrailingWindow(t *testing.T) {
	words := make([]string, 250)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	doc := strings.Join(words, " ")
	be := &fakeBackend{reply: "and then the door opened."}
	tr, c := newTrigger(&doc, be)

	tr.Keystroke()
	c.Advance(DefaultIdle - time.Millisecond)
	assert.Empty(t, be.requests())

	c.Advance(time.Millisecond)
	reqs := be.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, strings.Join(words[50:], " "), reqs[0])
	assert.Len(t, strings.Fields(reqs[0]), DefaultWindow)

	assert.True(t, tr.Visible())
	assert.Equal(t, "and then the door opened.", tr.Current())
}

func TestKeystrokeCancelsPendingRequest(t *testing.T) {
	doc := "She waited."
	be := &fakeBackend{reply: "Nobody came."}
	tr, c := newTrigger(&doc, be)

	tr.Keystroke()
	c.Advance(time.Second)
	tr.Keystroke()
	c.Advance(time.Second)
	assert.Empty(t, be.requests(), "second keystroke restarts the idle window")

	c.Advance(time.Second)
	assert.Len(t, be.requests(), 1)
}

func TestSourceReadAtFireTime(t *testing.T) {
	doc := "first draft"
	be := &fakeBackend{reply: "x"}
	tr, c := newTrigger(&doc, be)

	tr.Keystroke()
	doc = "edited before idle elapsed"
	c.Advance(DefaultIdle)
	assert.Equal(t, []string{"edited before idle elapsed"}, be.requests())
}

func TestKeystrokeClearsVisibleSuggestion(t *testing.T) {
	doc := "The rain"
	be := &fakeBackend{reply: "kept falling."}
	tr, c := newTrigger(&doc, be)

	var seen []string
	tr.OnSuggestion(func(s string) { seen = append(seen, s) })

	tr.Keystroke()
	c.Advance(DefaultIdle)
	require.True(t, tr.Visible())

	tr.Keystroke()
	assert.False(t, tr.Visible())
	assert.Equal(t, []string{"kept falling.", ""}, seen)
}

func TestAccept(t *testing.T) {
	doc := "The rain"
	be := &fakeBackend{reply: "kept falling."}
	tr, c := newTrigger(&doc, be)

	out, ok := tr.Accept(doc)
	assert.False(t, ok)
	assert.Equal(t, doc, out)

	tr.Keystroke()
	c.Advance(DefaultIdle)
	out, ok = tr.Accept(doc)
	assert.True(t, ok)
	assert.Equal(t, "The rain kept falling.", out)
	assert.False(t, tr.Visible())
}

func TestErrorsLeaveNoSuggestion(t *testing.T) {
	doc := "text"
	be := &fakeBackend{err: errors.New("503")}
	tr, c := newTrigger(&doc, be)

	tr.Keystroke()
	c.Advance(DefaultIdle)
	assert.False(t, tr.Visible())

	c.Advance(time.Minute)
	assert.Len(t, be.requests(), 1, "no retry")
}

func TestEmptyAnswerAndBlankDocument(t *testing.T) {
	doc := "   "
	be := &fakeBackend{reply: "something"}
	tr, c := newTrigger(&doc, be)

	tr.Keystroke()
	c.Advance(DefaultIdle)
	assert.Empty(t, be.requests(), "blank document sends nothing")

	doc = "words"
	be.reply = `  ""  `
	tr.Keystroke()
	c.Advance(DefaultIdle)
	assert.Len(t, be.requests(), 1)
	assert.False(t, tr.Visible())
}

func TestStaleResultDropped(t *testing.T) {
	doc := "Once"
	c := schedule.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	var tr *Trigger
	tr = New(Config{Clock: c}, func() string { return doc }, func(context.Context, string) (string, error) {
		// The writer types while the request is in flight.
		tr.Dismiss()
		return "upon a time", nil
	})

	tr.Keystroke()
	c.Advance(DefaultIdle)
	assert.False(t, tr.Visible())
}

func TestStop(t *testing.T) {
	doc := "text"
	be := &fakeBackend{reply: "more"}
	tr, c := newTrigger(&doc, be)

	tr.Keystroke()
	tr.Stop()
	c.Advance(time.Minute)
	assert.Empty(t, be.requests())
	assert.False(t, tr.Pending())
}

func TestTrailingWindow(t *testing.T) {
	assert.Equal(t, "c d", TrailingWindow("a b\n c   d", 2))
	assert.Equal(t, "a b", TrailingWindow(" a  b ", 10))
	assert.Equal(t, "", TrailingWindow("", 5))
}

func TestJoin(t *testing.T) {
	tests := []struct{ text, suggestion, want string }{
		{"", "Start.", "Start."},
		{"The end", "came.", "The end came."},
		{"The end ", "came.", "The end came."},
		{"Line\n", "Next.", "Line\nNext."},
	}
	for _, tt := range tests {
		if got := Join(tt.text, tt.suggestion); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.text, tt.suggestion, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "The door creaked.", Clean(`  "The door creaked."  `))
	assert.Equal(t, "She ran.", Clean("Suggestion: She ran."))
	assert.Equal(t, "", Clean(`""`))
}
