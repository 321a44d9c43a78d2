// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultSaveDelay is the quiet period before a save fires.
const DefaultSaveDelay = 900 * time.Millisecond

// =============================================================================
// STATUS
// =============================================================================

// Status is the sync state shown to the writer.
type Status int

const (
	StatusIdle Status = iota
	StatusTyping
	// StatusAnalyzing is shown while a save is in flight.
	StatusAnalyzing
	StatusSynced
	StatusSyncError
)

// String returns the status label.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusTyping:
		return "Typing..."
	case StatusAnalyzing:
		return "Analyzing..."
	case StatusSynced:
		return "Synced"
	case StatusSyncError:
		return "Sync error"
	default:
		return "Unknown"
	}
}

// =============================================================================
// AUTOSAVE
// =============================================================================

// SaveFunc persists content.
type SaveFunc func(ctx context.Context, content string) error

// AutosaveConfig configures an Autosave.
type AutosaveConfig struct {
	// Project is required; saves are skipped while it is empty.
	Project string
	// Delay is the debounce window (default: 900ms).
	Delay time.Duration
	// Timeout bounds each debounced save (default: 30s).
	Timeout time.Duration
	Clock   Clock
	Logger  *slog.Logger
}

// Autosave debounces content changes into save calls.
type Autosave struct {
	mu       sync.Mutex
	debounce *Debouncer
	save     SaveFunc
	logger   *slog.Logger
	timeout  time.Duration

	project  string
	latest   string
	unsaved  bool
	edits    uint64 // bumped by every Changed
	status   Status
	onStatus func(Status)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewAutosave creates an Autosave that calls save.
func NewAutosave(cfg AutosaveConfig, save SaveFunc) *Autosave {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultSaveDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Autosave{
		debounce: NewDebouncer(cfg.Clock, cfg.Delay),
		save:     save,
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
		project:  cfg.Project,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnStatus registers fn to be called on every status change. fn runs
// outside the Autosave lock and may be called from a timer goroutine.
func (a *Autosave) OnStatus(fn func(Status)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStatus = fn
}

// SetProject changes the project saves are attributed to.
func (a *Autosave) SetProject(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.project = id
}

// Status returns the current sync status.
func (a *Autosave) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Pending reports whether a debounced save is scheduled.
func (a *Autosave) Pending() bool {
	return a.debounce.Pending()
}

// Changed buffers content and restarts the debounce window.
func (a *Autosave) Changed(content string) {
	a.mu.Lock()
	a.latest = content
	a.unsaved = true
	a.edits++
	notify := a.setStatusLocked(StatusTyping)
	a.mu.Unlock()
	notify()

	a.debounce.Trigger(a.fire)
}

// Flush cancels the pending timer and saves the latest content now, if it
// has not been saved yet.
func (a *Autosave) Flush(ctx context.Context) error {
	a.debounce.Cancel()
	return a.run(ctx)
}

// Stop cancels the pending timer and any in-flight debounced save. Content
// that was not saved stays buffered for Flush.
func (a *Autosave) Stop() {
	a.debounce.Cancel()
	a.cancel()
}

func (a *Autosave) fire() {
	ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
	defer cancel()
	_ = a.run(ctx)
}

func (a *Autosave) run(ctx context.Context) error {
	a.mu.Lock()
	if !a.unsaved {
		a.mu.Unlock()
		return nil
	}
	content, project, edits := a.latest, a.project, a.edits
	if project == "" || strings.TrimSpace(content) == "" {
		// Nothing to attribute the save to, or nothing worth saving.
		a.unsaved = false
		notify := a.setStatusLocked(StatusIdle)
		a.mu.Unlock()
		notify()
		return nil
	}
	a.unsaved = false
	notify := a.setStatusLocked(StatusAnalyzing)
	a.mu.Unlock()
	notify()

	err := a.save(ctx, content)

	a.mu.Lock()
	newer := a.edits != edits
	switch {
	case err != nil:
		if !newer {
			a.unsaved = true
		}
		notify = a.setStatusLocked(StatusSyncError)
	case newer:
		notify = func() {}
	default:
		notify = a.setStatusLocked(StatusSynced)
	}
	a.mu.Unlock()
	notify()

	if err != nil {
		a.logger.Warn("AUTOSAVE_FAILED", "project", project, "bytes", len(content), "error", err)
		return err
	}
	a.logger.Debug("AUTOSAVE_OK", "project", project, "bytes", len(content))
	return nil
}

// setStatusLocked records s and returns the notification to run once the
// lock is released.
func (a *Autosave) setStatusLocked(s Status) func() {
	if a.status == s {
		return func() {}
	}
	a.status = s
	fn := a.onStatus
	if fn == nil {
		return func() {}
	}
	return func() { fn(s) }
}
