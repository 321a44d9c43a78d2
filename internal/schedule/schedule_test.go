// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// =============================================================================
// CLOCK TESTS
// =============================================================================

func TestManualClockRunsDueCallbacksInOrder(t *testing.T) {
	c := NewManualClock(epoch)
	var got []string
	c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(time.Second, func() { got = append(got, "a") })
	c.AfterFunc(5*time.Second, func() { got = append(got, "c") })

	c.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, c.Pending())
	assert.Equal(t, epoch.Add(3*time.Second), c.Now())

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Zero(t, c.Pending())
}

func TestManualClockStop(t *testing.T) {
	c := NewManualClock(epoch)
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestManualClockNestedSchedule(t *testing.T) {
	c := NewManualClock(epoch)
	var at []time.Time
	c.AfterFunc(time.Second, func() {
		at = append(at, c.Now())
		c.AfterFunc(time.Second, func() { at = append(at, c.Now()) })
	})

	c.Advance(5 * time.Second)
	require.Len(t, at, 2)
	assert.Equal(t, epoch.Add(time.Second), at[0])
	assert.Equal(t, epoch.Add(2*time.Second), at[1])
}

// =============================================================================
// DEBOUNCER TESTS
// =============================================================================

func TestDebouncerOnlyLastTriggerFires(t *testing.T) {
	c := NewManualClock(epoch)
	d := NewDebouncer(c, 900*time.Millisecond)

	var calls []int
	for i := 0; i < 5; i++ {
		i := i
		d.Trigger(func() { calls = append(calls, i) })
		c.Advance(500 * time.Millisecond)
	}
	assert.Empty(t, calls, "no call while triggers keep arriving")
	assert.True(t, d.Pending())

	c.Advance(400 * time.Millisecond)
	assert.Equal(t, []int{4}, calls)
	assert.False(t, d.Pending())
}

func TestDebouncerCancel(t *testing.T) {
	c := NewManualClock(epoch)
	d := NewDebouncer(c, time.Second)

	fired := false
	d.Trigger(func() { fired = true })
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	c.Advance(time.Minute)
	if fired {
		t.Error("cancelled debounce should not fire")
	}
}

func TestDebouncerRealClock(t *testing.T) {
	d := NewDebouncer(nil, 10*time.Millisecond)
	done := make(chan struct{})
	d.Trigger(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never fired")
	}
}

// =============================================================================
// AUTOSAVE TESTS
// =============================================================================

type saveRecorder struct {
	mu    sync.Mutex
	saves []string
	err   error
}

func (r *saveRecorder) save(_ context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, content)
	return r.err
}

func (r *saveRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saves...)
}

func newTestAutosave(project string) (*Autosave, *ManualClock, *saveRecorder, *[]Status) {
	c := NewManualClock(epoch)
	rec := &saveRecorder{}
	as := NewAutosave(AutosaveConfig{Project: project, Clock: c}, rec.save)
	var statuses []Status
	as.OnStatus(func(s Status) { statuses = append(statuses, s) })
	return as, c, rec, &statuses
}

func TestAutosaveDebouncesBurst(t *testing.T) {
	as, c, rec, statuses := newTestAutosave("p1")

	for _, s := range []string{"O", "On", "Onc", "Once"} {
		as.Changed(s)
		c.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, rec.calls())
	assert.Equal(t, StatusTyping, as.Status())

	c.Advance(DefaultSaveDelay - 100*time.Millisecond - time.Millisecond)
	assert.Empty(t, rec.calls(), "window counts from the last change")

	c.Advance(time.Millisecond)
	assert.Equal(t, []string{"Once"}, rec.calls())
	assert.Equal(t, StatusSynced, as.Status())
	assert.Equal(t, []Status{StatusTyping, StatusAnalyzing, StatusSynced}, *statuses)
}

func TestAutosaveFailureSetsSyncError(t *testing.T) {
	as, c, rec, _ := newTestAutosave("p1")
	rec.err = errors.New("backend down")

	as.Changed("draft")
	c.Advance(DefaultSaveDelay)
	assert.Equal(t, StatusSyncError, as.Status())
	assert.Equal(t, "Sync error", as.Status().String())

	// Recovered on the next debounce.
	rec.err = nil
	as.Changed("draft 2")
	c.Advance(DefaultSaveDelay)
	assert.Equal(t, []string{"draft", "draft 2"}, rec.calls())
	assert.Equal(t, StatusSynced, as.Status())
}

func TestAutosaveSkipsWithoutProjectOrContent(t *testing.T) {
	as, c, rec, _ := newTestAutosave("")
	as.Changed("words")
	c.Advance(DefaultSaveDelay)
	assert.Empty(t, rec.calls())
	assert.Equal(t, StatusIdle, as.Status())

	as.SetProject("p1")
	as.Changed("   \n")
	c.Advance(DefaultSaveDelay)
	assert.Empty(t, rec.calls())
}

func TestAutosaveStopPreventsStaleSave(t *testing.T) {
	as, c, rec, _ := newTestAutosave("p1")
	as.Changed("late")
	as.Stop()

	c.Advance(time.Minute)
	assert.Empty(t, rec.calls())
	assert.False(t, as.Pending())
}

func TestAutosaveFlush(t *testing.T) {
	as, c, rec, _ := newTestAutosave("p1")
	as.Changed("quit now")
	as.Stop()

	require.NoError(t, as.Flush(context.Background()))
	assert.Equal(t, []string{"quit now"}, rec.calls())

	// Nothing new to save.
	require.NoError(t, as.Flush(context.Background()))
	c.Advance(time.Minute)
	assert.Len(t, rec.calls(), 1)
}

func TestAutosaveFlushReturnsError(t *testing.T) {
	as, _, rec, _ := newTestAutosave("p1")
	rec.err = errors.New("nope")
	as.Changed("x")

	assert.Error(t, as.Flush(context.Background()))
	rec.err = nil
	assert.NoError(t, as.Flush(context.Background()), "failed content stays buffered")
	assert.Equal(t, []string{"x", "x"}, rec.calls())
}

func TestStatusLabels(t *testing.T) {
	labels := map[Status]string{
		StatusIdle:      "Idle",
		StatusTyping:    "Typing...",
		StatusAnalyzing: "Analyzing...",
		StatusSynced:    "Synced",
		StatusSyncError: "Sync error",
	}
	for s, want := range labels {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}

// =============================================================================
// GUARD TESTS
// =============================================================================

func TestGuard(t *testing.T) {
	var g Guard
	require.True(t, g.TryAcquire())
	assert.True(t, g.Busy())
	assert.False(t, g.TryAcquire())

	err := g.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrInFlight)

	g.Release()
	assert.False(t, g.Busy())

	ran := false
	require.NoError(t, g.Do(func() error { ran = true; return nil }))
	assert.True(t, ran)
	assert.False(t, g.Busy())
}

func TestGuardConcurrent(t *testing.T) {
	var g Guard
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0
	start := make(chan struct{})

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire() {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, 1, acquired)
}
