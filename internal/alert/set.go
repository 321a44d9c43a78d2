// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package alert

import "sync"

// Indexed pairs an alert with its position in the current collection.
type Indexed struct {
	Index int
	Alert Alert
}

// Set is the current alert collection and its dismissed-set.
// It is safe for concurrent use.
type Set struct {
	mu         sync.RWMutex
	items      []Alert
	dismissed  map[int]struct{}
	generation uint64
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{dismissed: make(map[int]struct{})}
}

// Replace swaps in a new collection from an analyze response. The
// dismissed-set is reset and the generation advances.
func (s *Set) Replace(alerts []Alert) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Alert(nil), alerts...)
	s.dismissed = make(map[int]struct{})
	s.generation++
	return s.generation
}

// Generation identifies the current collection. It changes on every
// Replace, so callers can tell whether a saved index is still valid.
func (s *Set) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Len returns the number of alerts, dismissed ones included.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// At returns the alert at position i.
func (s *Set) At(i int) (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.items) {
		return Alert{}, false
	}
	return s.items[i], true
}

// Dismiss hides the alert at position i. It returns false for an index
// outside the collection or one already dismissed.
func (s *Set) Dismiss(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dismissLocked(i)
}

// DismissIn dismisses position i only if the collection is still the
// given generation.
func (s *Set) DismissIn(generation uint64, i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return false
	}
	return s.dismissLocked(i)
}

func (s *Set) dismissLocked(i int) bool {
	if i < 0 || i >= len(s.items) {
		return false
	}
	if _, ok := s.dismissed[i]; ok {
		return false
	}
	s.dismissed[i] = struct{}{}
	return true
}

// IsDismissed reports whether position i has been dismissed.
func (s *Set) IsDismissed(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dismissed[i]
	return ok
}

// Visible returns the alerts that have not been dismissed, with their
// positions in the collection.
func (s *Set) Visible() []Indexed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Indexed, 0, len(s.items)-len(s.dismissed))
	for i, a := range s.items {
		if _, ok := s.dismissed[i]; ok {
			continue
		}
		out = append(out, Indexed{Index: i, Alert: a})
	}
	return out
}

// VisibleAlerts returns the non-dismissed alerts in collection order.
func (s *Set) VisibleAlerts() []Alert {
	vis := s.Visible()
	out := make([]Alert, len(vis))
	for i, v := range vis {
		out[i] = v.Alert
	}
	return out
}

// All returns a copy of the whole collection.
func (s *Set) All() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Alert(nil), s.items...)
}
