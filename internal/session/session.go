// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/document"
	"github.com/inkwell-studio/inkwell/internal/ghost"
	"github.com/inkwell-studio/inkwell/internal/highlight"
	"github.com/inkwell-studio/inkwell/internal/schedule"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the subset of the service a session calls.
type Backend interface {
	Save(ctx context.Context, project, content string) (*backend.SaveResponse, error)
	Analyze(ctx context.Context, project, content string) (*backend.AnalyzeResponse, error)
	FixSpelling(ctx context.Context, project, content, word, suggestion string) (*backend.FixSpellingResponse, error)
	GrammarSuggestion(ctx context.Context, project, content string, a alert.Alert) (*backend.GrammarSuggestion, error)
	GenerateSuggestions(ctx context.Context, project, content string) (*backend.GeneratedSuggestions, error)
	GhostSuggestion(ctx context.Context, project, window string) (string, error)
}

// DraftStore keeps local copies of drafts and alert snapshots.
type DraftStore interface {
	SaveDraft(ctx context.Context, project, content string) error
	LatestDraft(ctx context.Context, project string) (string, bool, error)
	SaveAlerts(ctx context.Context, project string, alerts []alert.Alert) error
	LatestAlerts(ctx context.Context, project string) ([]alert.Alert, error)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoAlert is returned for an index that is out of range or dismissed.
	ErrNoAlert = errors.New("no such alert")
	// ErrNoSuggestion is returned when no suggestion is pending.
	ErrNoSuggestion = errors.New("no suggestion pending")
	// ErrNoCandidate is returned for a spelling alert without a replacement.
	ErrNoCandidate = errors.New("spelling alert offers no replacement")
	// ErrStale is returned when the document changed since a comparison
	// was made.
	ErrStale = errors.New("document changed since the comparison was made")
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for a session.
type Config struct {
	// Project is the backend project id; without it nothing is sent
	Project string

	// SaveDelay is the autosave debounce window (default: 900ms)
	SaveDelay time.Duration

	// GhostEnabled turns idle continuations on
	GhostEnabled bool

	// GhostIdle is the pause before a continuation is requested (default: 2s)
	GhostIdle time.Duration

	// GhostWindow is how many trailing words are sent (default: 200)
	GhostWindow int

	// Drafts is optional local persistence
	Drafts DraftStore

	// Clock drives both timers (default: real time)
	Clock schedule.Clock

	// NewID generates highlight ids (default: random UUIDs)
	NewID func() string

	Logger *slog.Logger
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		SaveDelay:    schedule.DefaultSaveDelay,
		GhostEnabled: true,
		GhostIdle:    ghost.DefaultIdle,
		GhostWindow:  ghost.DefaultWindow,
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Analysis is what a successful analyze produced.
type Analysis struct {
	Alerts    []alert.Alert
	Entities  []backend.Entity
	Highlight highlight.Result
}

// Session is one open document.
type Session struct {
	mu sync.Mutex

	project string
	be      Backend
	drafts  DraftStore
	logger  *slog.Logger

	doc        *document.Document
	edits      uint64 // bumped on every text change
	alerts     *alert.Set
	entities   []backend.Entity
	pending    *Suggestion
	reconciler *highlight.Reconciler
	lastPaint  highlight.Result

	autosave     *schedule.Autosave
	ghost        *ghost.Trigger
	ghostEnabled bool
	analyzing    schedule.Guard
	fixing       schedule.Guard

	// Callbacks
	onChange   []func(text string)
	onAnalysis func(Analysis)
}

// New creates a session for be.
func New(cfg Config, be Backend) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Session{
		project:      cfg.Project,
		be:           be,
		drafts:       cfg.Drafts,
		logger:       cfg.Logger,
		doc:          document.New(),
		alerts:       alert.NewSet(),
		reconciler:   &highlight.Reconciler{NewID: cfg.NewID, Logger: cfg.Logger},
		ghostEnabled: cfg.GhostEnabled,
	}
	s.autosave = schedule.NewAutosave(schedule.AutosaveConfig{
		Project: cfg.Project,
		Delay:   cfg.SaveDelay,
		Clock:   cfg.Clock,
		Logger:  cfg.Logger,
	}, s.save)
	s.ghost = ghost.New(ghost.Config{
		Idle:   cfg.GhostIdle,
		Window: cfg.GhostWindow,
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	}, s.Text, s.fetchGhost)
	return s
}

// =============================================================================
// CALLBACKS
// =============================================================================

// OnChange registers fn to be called with the full text whenever the
// session itself changes the document (fixes, accepted suggestions,
// restored drafts). Edits reported through ContentChanged do not fire it.
func (s *Session) OnChange(fn func(text string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnAnalysis registers fn to be called after every successful analyze.
func (s *Session) OnAnalysis(fn func(Analysis)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAnalysis = fn
}

// OnStatus registers fn to be called when the sync status changes.
func (s *Session) OnStatus(fn func(schedule.Status)) {
	s.autosave.OnStatus(fn)
}

// OnGhost registers fn to be called when the ghost suggestion appears or
// is cleared.
func (s *Session) OnGhost(fn func(string)) {
	s.ghost.OnSuggestion(fn)
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Project returns the project id.
func (s *Session) Project() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// SetProject changes the project id used for every later call.
func (s *Session) SetProject(id string) {
	s.mu.Lock()
	s.project = id
	s.mu.Unlock()
	s.autosave.SetProject(id)
}

// Text returns the current plain text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Text()
}

// Document returns a copy of the highlighted document.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Open restores the latest local draft and alert snapshot when the session
// is still empty.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	drafts, project, empty := s.drafts, s.project, s.doc.Text() == ""
	s.mu.Unlock()
	if drafts == nil || project == "" || !empty {
		return nil
	}

	content, ok, err := drafts.LatestDraft(ctx, project)
	if err != nil {
		s.logger.Warn("DRAFT_RESTORE_FAILED", "project", project, "error", err)
		return err
	}
	if !ok {
		return nil
	}
	alerts, err := drafts.LatestAlerts(ctx, project)
	if err != nil {
		s.logger.Warn("SNAPSHOT_RESTORE_FAILED", "project", project, "error", err)
		alerts = nil
	}

	s.mu.Lock()
	if s.doc.Text() != "" {
		// The writer started typing while we were loading.
		s.mu.Unlock()
		return nil
	}
	s.alerts.Replace(alerts)
	notify := s.replaceLocked(content)
	s.mu.Unlock()
	notify()

	s.logger.Info("DRAFT_RESTORED", "project", project, "bytes", len(content), "alerts", len(alerts))
	return nil
}

// ContentChanged records an edit made by the writer: the text is replaced,
// highlights are repainted for the visible alerts, the autosave debounce
// restarts and the ghost suggestion is reset.
func (s *Session) ContentChanged(text string) {
	s.mu.Lock()
	s.setTextLocked(text)
	s.mu.Unlock()

	s.autosave.Changed(text)
	if s.ghostEnabled {
		s.ghost.Keystroke()
	}
}

// Load sets the text of a freshly opened file. Nothing is saved and
// OnChange listeners are not called.
func (s *Session) Load(text string) {
	s.mu.Lock()
	s.setTextLocked(text)
	s.mu.Unlock()
}

// setTextLocked replaces the document text and repaints highlights.
func (s *Session) setTextLocked(text string) {
	s.doc.SetText(text)
	s.edits++
	s.repaintLocked()
}

// replaceLocked is setTextLocked for changes the session makes itself. The
// returned func notifies listeners, feeds autosave and clears the ghost; it
// must run after the lock is released.
func (s *Session) replaceLocked(text string) func() {
	s.setTextLocked(text)
	listeners := append([]func(string){}, s.onChange...)
	return func() {
		for _, fn := range listeners {
			fn(text)
		}
		s.autosave.Changed(text)
		s.ghost.Dismiss()
	}
}

func (s *Session) repaintLocked() {
	s.lastPaint = s.reconciler.Reconcile(s.doc, s.alerts.VisibleAlerts())
}

// =============================================================================
// ANALYZE
// =============================================================================

// Analyze sends the current text for analysis. The returned collection
// replaces the previous one, dismissals included. At most one analyze runs
// at a time; a concurrent call gets schedule.ErrInFlight. Without a project
// or content it does nothing and returns nil.
func (s *Session) Analyze(ctx context.Context) (*Analysis, error) {
	if !s.analyzing.TryAcquire() {
		return nil, schedule.ErrInFlight
	}
	defer s.analyzing.Release()

	s.mu.Lock()
	project, content := s.project, s.doc.Text()
	s.mu.Unlock()
	if project == "" || strings.TrimSpace(content) == "" {
		return nil, nil
	}

	start := time.Now()
	resp, err := s.be.Analyze(ctx, project, content)
	if err != nil {
		if backend.IsNoop(err) {
			return nil, nil
		}
		s.logger.Warn("ANALYZE_FAILED", "project", project, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.alerts.Replace(resp.Alerts)
	s.entities = resp.Entities
	s.repaintLocked()
	result := Analysis{
		Alerts:    s.alerts.All(),
		Entities:  append([]backend.Entity(nil), resp.Entities...),
		Highlight: s.lastPaint,
	}
	onAnalysis, drafts := s.onAnalysis, s.drafts
	s.mu.Unlock()

	s.logger.Info("ANALYZE_OK",
		"project", project,
		"alerts", len(result.Alerts),
		"applied", result.Highlight.Applied,
		"skipped", result.Highlight.Skipped,
		"duration", time.Since(start))

	if drafts != nil {
		if err := drafts.SaveAlerts(ctx, project, result.Alerts); err != nil {
			s.logger.Warn("SNAPSHOT_FAILED", "project", project, "error", err)
		}
	}
	if onAnalysis != nil {
		onAnalysis(result)
	}
	return &result, nil
}

// Analyzing reports whether an analyze is in flight.
func (s *Session) Analyzing() bool {
	return s.analyzing.Busy()
}

// Dismiss hides alert i until the next analyze.
func (s *Session) Dismiss(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alerts.Dismiss(i) {
		return ErrNoAlert
	}
	s.repaintLocked()
	return nil
}

// Alerts returns the visible alerts with their positional indices.
func (s *Session) Alerts() []alert.Indexed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alerts.Visible()
}

// Entities returns the entities from the last analyze.
func (s *Session) Entities() []backend.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Entity(nil), s.entities...)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// save is the autosave path: a local draft first, then the backend.
func (s *Session) save(ctx context.Context, content string) error {
	s.mu.Lock()
	project, drafts := s.project, s.drafts
	s.mu.Unlock()

	if drafts != nil {
		if err := drafts.SaveDraft(ctx, project, content); err != nil {
			s.logger.Warn("DRAFT_SAVE_FAILED", "project", project, "error", err)
		}
	}
	_, err := s.be.Save(ctx, project, content)
	if backend.IsNoop(err) {
		return nil
	}
	return err
}

// Close stops both timers and saves unsaved content.
func (s *Session) Close(ctx context.Context) error {
	s.ghost.Stop()
	s.autosave.Stop()
	return s.autosave.Flush(ctx)
}
