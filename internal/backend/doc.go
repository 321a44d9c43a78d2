// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP and WebSocket clients for the Inkwell
// analysis service.
//
// The service owns all language work (spelling, grammar, continuity, entity
// extraction, continuations); this package only moves requests and
// responses. Every call is rate limited and carries the configured bearer
// token.
//
// # Key Types
//
//   - Client: JSON-over-HTTP client for the /editor routes
//   - Socket: the /ws/editor analyze channel
//   - Realtime: analyze over the socket, falling back to HTTP
//   - ClientError: typed error with sentinel values for errors.Is
//
// # Usage
//
//	client := backend.NewClient(backend.DefaultConfig())
//	resp, err := client.Analyze(ctx, projectID, text)
//	if errors.Is(err, backend.ErrUnavailable) {
//	    // service down; keep editing
//	}
//
// Calls without a project id or with blank content are never sent; they
// return ErrMissingProject or ErrEmptyContent, which callers treat as a
// no-op.
package backend
