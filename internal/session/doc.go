// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties one editable document to the analysis backend.
//
// A Session owns the document, the current alert collection with its
// dismissed indices, the debounced autosave, the ghost-suggestion timer and
// the suggestion being edited in a fix dialog. All state changes are
// serialized by one mutex. Backend calls are made without holding it, and
// their results are applied to whatever the document is when they return.
//
// # Key Types
//
//   - Session: the editor state and its operations
//   - Backend: the service calls a session needs (backend.Client satisfies it)
//   - DraftStore: optional local persistence (storage.Store satisfies it)
//   - Suggestion: the rewrite shown in a fix dialog
//   - Snapshot: a consistent read of everything a shell renders
//
// # Usage
//
//	s := session.New(session.Config{Project: "p1"}, client)
//	defer s.Close(ctx)
//	s.ContentChanged(text)          // on every edit
//	s.Analyze(ctx)                  // on demand
//	sg, _ := s.RequestFix(ctx, 0)   // grammar: opens a suggestion
//	s.ApplySuggestion()
//
// Two timers run per session: the autosave debounce and the ghost idle
// timer. Close stops both and flushes unsaved content.
package session
