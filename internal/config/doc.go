// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for inkwell.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Backend URL, token, timeout and rate limit
//   - EditorConfig: Project id, debounce and ghost timing
//   - StorageConfig: Local draft database
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (INKWELL_*)
//   - $INKWELL_CONFIG or ~/.inkwell/config.toml
//   - ~/.inkwell/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	delay := cfg.Editor.Debounce()
package config
