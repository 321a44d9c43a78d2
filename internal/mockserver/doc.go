// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mockserver is an in-memory stand-in for the Inkwell backend.
//
// It speaks the same HTTP and WebSocket contract as the real service, so
// the editor, the CLI and the integration tests can run without a model
// or database behind them.
//
// # Endpoints
//
//   - POST /editor/save                    - record a draft
//   - POST /editor/analyze                 - spelling, repeated-word and entity analysis
//   - POST /editor/fix-spelling            - whole-word replacement
//   - POST /editor/get-grammar-suggestion  - rewrite the text of one alert
//   - POST /editor/generate-suggestions    - apply every fix at once
//   - POST /editor/suggest                 - ghost continuation
//   - GET  /editor/story-brain/{id}        - entities and recent drafts
//   - POST /editor/update-entity           - replace an entity's metadata
//   - POST /editor/refresh-character-summary - regenerate a character summary
//   - POST /projects/setup                 - create a project from a setup form
//   - GET  /plot-thread/{id}               - threads, points and connections
//   - POST /plot-thread/{id}/extract       - turn pending drafts into plot points
//   - POST /plot-thread/{id}/thread        - create a thread
//   - POST /plot-thread/{id}/point         - create a point
//   - PUT  /plot-thread/point/{pid}        - edit a point
//   - DELETE /plot-thread/point/{pid}      - delete a point and its connections
//   - POST /plot-thread/connection         - link two points
//   - DELETE /plot-thread/connection/{cid} - remove a link
//   - GET  /ws/editor                      - realtime analyze channel
//   - GET  /health                         - liveness
//   - GET  /metrics                        - Prometheus metrics
//
// # Analysis
//
// Spelling uses a sajari/fuzzy model trained on an embedded word list.
// Unknown lower-case words produce a SPELLING alert whose explanation
// lists candidates as "Did you mean: a, b?", the format the editor parses.
// Capitalized words are treated as names and reported as entities.
//
// # Plot
//
// The plot graph is explicit. Extraction appends one point per draft not
// yet extracted, chained with FOLLOWS connections on the first thread.
// The world-setting draft written by project setup is skipped.
//
// # Usage
//
//	srv := mockserver.New(mockserver.Config{Addr: ":8000", Logger: logger})
//	go srv.ListenAndServe()
//	defer srv.Shutdown(ctx)
package mockserver
