// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/compare"
	"github.com/inkwell-studio/inkwell/internal/schedule"
	"github.com/inkwell-studio/inkwell/internal/suggest"
)

// =============================================================================
// SUGGESTION IN PROGRESS
// =============================================================================

// Suggestion is the rewrite shown in a fix dialog. SuggestedText is
// editable until the suggestion is applied or cancelled.
type Suggestion struct {
	OriginalText  string
	SuggestedText string
	Explanation   string
	AlertType     alert.Kind
	Source        alert.Alert
	SourceIndex   int
	// Generation of the alert collection the source came from. The source
	// is only dismissed on apply if the collection was not replaced since.
	Generation uint64
}

// =============================================================================
// FIX
// =============================================================================

// RequestFix starts fixing visible alert i. Spelling alerts are fixed
// right away with the first candidate from the explanation and nil is
// returned. Other alerts fetch a rewrite from the backend and return it as
// the pending Suggestion. At most one fix runs at a time.
func (s *Session) RequestFix(ctx context.Context, i int) (*Suggestion, error) {
	if !s.fixing.TryAcquire() {
		return nil, schedule.ErrInFlight
	}
	defer s.fixing.Release()

	s.mu.Lock()
	a, ok := s.alerts.At(i)
	if !ok || s.alerts.IsDismissed(i) {
		s.mu.Unlock()
		return nil, ErrNoAlert
	}
	gen, edits := s.alerts.Generation(), s.edits
	project, content := s.project, s.doc.Text()
	s.mu.Unlock()

	if a.IsSpelling() {
		return nil, s.fixSpelling(ctx, a, i, gen, edits, project, content)
	}
	return s.fetchSuggestion(ctx, a, i, gen, project, content)
}

func (s *Session) fixSpelling(ctx context.Context, a alert.Alert, i int, gen, edits uint64, project, content string) error {
	candidate, ok := a.Suggestion()
	if !ok || !a.HasText() {
		return ErrNoCandidate
	}

	resp, err := s.be.FixSpelling(ctx, project, content, a.OriginalText, candidate)
	if err != nil {
		if backend.IsNoop(err) {
			return nil
		}
		s.logger.Warn("FIX_FAILED", "project", project, "word", a.OriginalText, "error", err)
		return err
	}

	s.mu.Lock()
	var text string
	if s.edits == edits && resp.CorrectedText != "" {
		text = resp.CorrectedText
	} else {
		// The writer kept typing; redo the fix on the live text.
		res, err := suggest.Apply(s.doc.Text(), a.OriginalText, candidate)
		if err != nil {
			s.mu.Unlock()
			s.logger.Warn("APPLY_FAILED", "word", a.OriginalText, "error", err)
			return err
		}
		text = res.Text
	}
	s.alerts.DismissIn(gen, i)
	notify := s.replaceLocked(text)
	s.mu.Unlock()
	notify()

	s.logger.Debug("FIX_APPLIED", "word", a.OriginalText, "replacement", candidate)
	return nil
}

func (s *Session) fetchSuggestion(ctx context.Context, a alert.Alert, i int, gen uint64, project, content string) (*Suggestion, error) {
	resp, err := s.be.GrammarSuggestion(ctx, project, content, a)
	if err != nil {
		if backend.IsNoop(err) {
			return nil, nil
		}
		s.logger.Warn("SUGGEST_FAILED", "project", project, "type", string(a.Type), "error", err)
		return nil, err
	}

	sg := &Suggestion{
		OriginalText:  firstNonBlank(resp.OriginalText, a.OriginalText),
		SuggestedText: resp.SuggestedText,
		Explanation:   firstNonBlank(resp.Explanation, a.Explanation),
		AlertType:     a.Type,
		Source:        a,
		SourceIndex:   i,
		Generation:    gen,
	}

	s.mu.Lock()
	s.pending = sg
	out := *sg
	s.mu.Unlock()
	return &out, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// =============================================================================
// PENDING SUGGESTION
// =============================================================================

// Pending returns a copy of the pending suggestion, or nil.
func (s *Session) Pending() *Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	out := *s.pending
	return &out
}

// EditSuggestion replaces the pending suggestion's text.
func (s *Session) EditSuggestion(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ErrNoSuggestion
	}
	s.pending.SuggestedText = text
	return nil
}

// ApplySuggestion writes the pending suggestion into the document. On
// failure the document and the pending suggestion are left as they were so
// the writer can retry or cancel.
func (s *Session) ApplySuggestion() (suggest.Result, error) {
	s.mu.Lock()
	p := s.pending
	if p == nil {
		s.mu.Unlock()
		return suggest.Result{}, ErrNoSuggestion
	}
	res, err := suggest.Apply(s.doc.Text(), p.OriginalText, p.SuggestedText)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("APPLY_FAILED", "type", string(p.AlertType), "error", err)
		return suggest.Result{}, err
	}
	s.alerts.DismissIn(p.Generation, p.SourceIndex)
	s.pending = nil
	notify := s.replaceLocked(res.Text)
	s.mu.Unlock()
	notify()

	s.logger.Debug("SUGGESTION_APPLIED", "strategy", res.Strategy.String())
	return res, nil
}

// CancelSuggestion drops the pending suggestion.
func (s *Session) CancelSuggestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// =============================================================================
// FULL-DOCUMENT SUGGESTIONS
// =============================================================================

// GenerateSuggestions asks for a rewrite of the whole document applying
// every alert and returns it as a comparison against the current text.
// Without a project or content it returns nil, nil.
func (s *Session) GenerateSuggestions(ctx context.Context) (*compare.Comparison, error) {
	s.mu.Lock()
	project, content := s.project, s.doc.Text()
	s.mu.Unlock()

	resp, err := s.be.GenerateSuggestions(ctx, project, content)
	if err != nil {
		if backend.IsNoop(err) {
			return nil, nil
		}
		s.logger.Warn("GENERATE_FAILED", "project", project, "error", err)
		return nil, err
	}

	cmp := compare.New(content, resp.SuggestedText)
	cmp.AlertsApplied = resp.AlertsApplied
	return cmp, nil
}

// AcceptGenerated adopts the suggested side of cmp, provided the document
// still matches its original side.
func (s *Session) AcceptGenerated(cmp *compare.Comparison) error {
	if cmp == nil {
		return ErrNoSuggestion
	}
	s.mu.Lock()
	if s.doc.Text() != cmp.Original {
		s.mu.Unlock()
		return ErrStale
	}
	notify := s.replaceLocked(cmp.Suggested)
	s.mu.Unlock()
	notify()
	return nil
}

// =============================================================================
// GHOST SUGGESTIONS
// =============================================================================

// Keystroke reports a key that did not edit the text (cursor movement and
// the like). It hides the ghost suggestion and restarts the idle timer.
func (s *Session) Keystroke() {
	if s.ghostEnabled {
		s.ghost.Keystroke()
	}
}

// Ghost returns the visible ghost suggestion, or "".
func (s *Session) Ghost() string {
	return s.ghost.Current()
}

// AcceptGhost appends the visible ghost suggestion to the document. It
// returns false when none is showing.
func (s *Session) AcceptGhost() bool {
	base := s.Text()
	text, ok := s.ghost.Accept(base)
	if !ok {
		return false
	}

	s.mu.Lock()
	if s.doc.Text() != base {
		// An edit landed between the read and the accept.
		s.mu.Unlock()
		return false
	}
	notify := s.replaceLocked(text)
	s.mu.Unlock()
	notify()
	return true
}

func (s *Session) fetchGhost(ctx context.Context, window string) (string, error) {
	s.mu.Lock()
	project := s.project
	s.mu.Unlock()

	out, err := s.be.GhostSuggestion(ctx, project, window)
	if backend.IsNoop(err) {
		return "", nil
	}
	return out, err
}
