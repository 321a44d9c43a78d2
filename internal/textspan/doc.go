// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package textspan locates occurrences of flagged text inside prose.
//
// The locator works on plain strings and reports byte-offset spans. It is
// the leaf of the editor core: the highlight reconciler feeds it the plain
// runs of a document, the suggestion applier and the comparison view use
// its span type.
//
// # Matching Rules
//
//   - Matches are non-overlapping and found left to right; the cursor
//     advances past each match before searching for the next.
//   - Locate tries a case-sensitive pass first and falls back to a
//     case-insensitive pass (Unicode case folding) only when the first
//     pass finds nothing.
//   - Empty or whitespace-only targets never match.
//
// # Usage
//
//	for _, sp := range textspan.Locate(text, "the potion") {
//	    fmt.Println(text[sp.Start:sp.End])
//	}
package textspan
