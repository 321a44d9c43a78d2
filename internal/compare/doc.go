// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package compare builds the side-by-side view for a full-document
// suggestion: the current text, the suggested text, and what changed.
//
// # Key Types
//
//   - Comparison: both versions plus line hunks, inline segments and stats
//   - Line, Hunk: line-level changes with context, for unified output
//   - Segment: word-level inline change, for highlighting in a terminal
//
// # Usage
//
//	cmp := compare.New(current, suggested)
//	fmt.Println(cmp.Summary())  // "3 sentences changed +2 -1"
//	fmt.Print(cmp.Unified("chapter.txt"))
package compare
