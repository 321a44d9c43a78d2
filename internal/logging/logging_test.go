// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetup_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Setup(Options{Level: "warn", Format: "json", Writer: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("ANALYZE_OK", "alerts", 3)
	logger.Warn("AUTOSAVE_FAILED", "project", "p1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "AUTOSAVE_FAILED", entry["msg"])
	assert.Equal(t, "p1", entry["project"])
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "inkwell.log")
	logger, closer, err := Setup(Options{File: path})
	require.NoError(t, err)
	logger.Info("DRAFT_RESTORED", "bytes", 12)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=DRAFT_RESTORED")
	assert.Contains(t, string(data), "bytes=12")
}

func TestSetup_BadFormat(t *testing.T) {
	_, _, err := Setup(Options{Format: "xml"})
	assert.Error(t, err)
}
