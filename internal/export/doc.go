// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders analysis reports for inkwell.
//
// A Report holds the alerts and entities found in one file. Exporters turn
// a list of reports into JSON, YAML, Markdown or a standalone HTML page
// that shows the chapter with its highlights.
//
// # Key Types
//
//   - Report: alerts and entities for one file
//   - Exporter: interface implemented by every format
//   - Options: output directory, metadata and theme
//
// # Usage
//
//	exp, err := export.New("markdown", nil)
//	data, err := exp.Export(reports)
//	path, err := export.ExportToFile(reports, exp, opts)
package export
