// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schedule provides the timers and flags that pace backend traffic
// from the editor.
//
// # Key Types
//
//   - Clock: time source; RealClock in production, ManualClock in tests
//   - Debouncer: owned, cancelable delayed call; only the last trigger fires
//   - Autosave: debounced save with the sync status shown to the writer
//   - Guard: single-flight flag for manual actions such as analyze
//
// # Usage
//
//	as := schedule.NewAutosave(schedule.AutosaveConfig{Project: "p1"}, client.Save)
//	as.OnStatus(func(s schedule.Status) { fmt.Println(s) })
//	as.Changed(text) // on every keystroke
//	defer as.Flush(ctx)
//	defer as.Stop()
package schedule
