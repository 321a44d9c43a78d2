// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across inkwell.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth, StringWidth, PadRight: terminal column aware helpers
//   - OneLine: collapse a passage onto one line for lists and tooltips
//
// File Operations:
//   - ReplaceFile: crash-safe save that keeps the file's mode and symlinks
//
// # Usage
//
//	display := util.TruncateWidth(util.OneLine(alert.Explanation), 60)
//	err := util.ReplaceFile(path, data, 0644)
package util
