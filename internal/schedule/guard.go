// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"errors"
	"sync/atomic"
)

// ErrInFlight is returned when a guarded action is already running.
var ErrInFlight = errors.New("operation already in flight")

// Guard allows at most one holder at a time. The zero value is ready.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire takes the guard if it is free.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// Busy reports whether the guard is held.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}

// Do runs fn while holding the guard, or returns ErrInFlight.
func (g *Guard) Do(fn func() error) error {
	if !g.TryAcquire() {
		return ErrInFlight
	}
	defer g.Release()
	return fn()
}
