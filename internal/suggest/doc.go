// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package suggest applies an accepted suggestion to plain text.
//
// The flagged text is located with a cascade, first success wins:
//
//  1. exact substring
//  2. case-insensitive match of the escaped text
//  3. the first sentence that contains the text, compared lowercased with
//     whitespace collapsed; the whole sentence is replaced
//  4. append the replacement to the end of the text
//
// An empty replacement deletes the located text. With nothing located
// there is nothing to delete and Apply returns ErrEmptyReplacement.
//
// Apply is pure: it never touches a document, so callers can run it
// against the live text and discard the result on error.
package suggest
