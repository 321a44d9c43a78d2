// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ghost offers idle-time continuation text.
//
// Every keystroke clears the visible suggestion and restarts an idle timer.
// When the timer fires, the trailing window of the document is sent to the
// suggestion endpoint and a non-empty answer becomes the ghost text. The
// ghost never edits the document; Accept returns the joined text for the
// caller to adopt.
package ghost
