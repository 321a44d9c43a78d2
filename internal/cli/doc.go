// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the inkwell command line.
//
// The commands are built with cobra. Every command shares one App, which
// loads the configuration, applies the global flags and builds the logger,
// the backend client and the optional draft store on first use.
//
// # Commands
//
//   - edit FILE (default): full-screen editor on a text or HTML file
//   - check GLOB...: analyze files concurrently and print the alerts
//   - watch FILE: autosave a file edited elsewhere, optionally analyzing
//   - brain: print the project's entities, history and plot threads
//   - config show|get|set|path: inspect and change the config file
//   - version: print build information
//
// # Usage
//
//	os.Exit(cli.Execute())
//
// # Exit Codes
//
// Errors are mapped to exit codes by GetExitCode: usage errors exit 2,
// configuration errors 3, an unreachable backend 5, missing resources 7
// and timeouts 8. Anything else exits 1.
package cli
