// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/document"
	"github.com/inkwell-studio/inkwell/internal/schedule"
)

// WordsPerMinute is the reading speed behind Snapshot.ReadingMinutes.
const WordsPerMinute = 200

// Snapshot is a consistent read of everything a shell renders.
type Snapshot struct {
	Text           string
	Layout         []document.LayoutEntry
	Markers        []document.Placement
	Visible        []alert.Indexed
	Entities       []backend.Entity
	Status         schedule.Status
	Pending        *Suggestion
	Ghost          string
	Words          int
	ReadingMinutes int
	Generation     uint64
	Analyzing      bool
}

// Snapshot captures the session state under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Text:       s.doc.Text(),
		Layout:     s.doc.Layout(),
		Markers:    s.doc.Markers(),
		Visible:    s.alerts.Visible(),
		Entities:   append([]backend.Entity(nil), s.entities...),
		Words:      s.doc.Words(),
		Generation: s.alerts.Generation(),
	}
	if s.pending != nil {
		p := *s.pending
		snap.Pending = &p
	}
	s.mu.Unlock()

	snap.ReadingMinutes = ReadingMinutes(snap.Words)
	snap.Status = s.autosave.Status()
	snap.Ghost = s.ghost.Current()
	snap.Analyzing = s.analyzing.Busy()
	return snap
}

// ReadingMinutes rounds words up to whole minutes at WordsPerMinute.
// Any non-empty text takes at least a minute.
func ReadingMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
