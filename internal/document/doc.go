// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document models the rich-text buffer the writer edits.
//
// A Document is an ordered list of blocks (one per line of the plain-text
// form); each block is an ordered list of runs. A run is either plain text
// or a highlight: text wrapped by a Marker carrying a category class, an
// opaque id and a tooltip. Markers cannot contain runs, so highlights never
// nest.
//
// # Key Types
//
//   - Document: the buffer, convertible to and from plain text and HTML
//   - Block: one line of the buffer
//   - Run: plain or highlighted text
//   - Marker: the annotation on a highlighted run
//   - Placement: where a marker sits (block and byte offsets)
//
// # Usage
//
//	doc := document.FromText("Elias descended the worn stone steps.")
//	n := doc.WrapAll(func(s string) []textspan.Span {
//	    return textspan.Find(s, "worn", false)
//	}, func() document.Marker {
//	    return document.Marker{Class: "grammar-highlight", ID: "m1"}
//	})
//	doc.Strip() // back to plain runs
package document
