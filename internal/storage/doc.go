// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps local copies of drafts for inkwell.
//
// Every autosave writes the draft to a SQLite database before it is sent
// to the backend, so a crash or an unreachable backend never loses text.
// The latest alert collection of each project is kept next to its drafts,
// encoded with msgpack, so a reopened chapter shows its highlights before
// the first analyze.
//
// # Key Types
//
//   - Store: the SQLite-backed draft store (implements session.DraftStore)
//   - Draft: one saved version of a project's text
//   - DraftMeta: lightweight listing entry
//   - ProjectMeta: per-project summary
//
// # Usage
//
//	store, err := storage.Open(storage.DefaultConfig())
//	defer store.Close()
//	err = store.SaveDraft(ctx, "p1", text)
//	text, ok, err := store.LatestDraft(ctx, "p1")
//	history, err := store.History(ctx, "p1", 10)
//
// # Storage Location
//
// Drafts are stored in ~/.inkwell/drafts.db. Each project keeps its most
// recent MaxDrafts versions; older ones are pruned on save.
package storage
