// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears the INKWELL_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{"INKWELL_CONFIG", "INKWELL_BACKEND_URL", "INKWELL_TOKEN", "INKWELL_PROJECT",
		"INKWELL_DEBOUNCE_MS", "INKWELL_LOG_LEVEL", "INKWELL_REALTIME"} {
		t.Setenv(k, "")
	}
	return home
}

// =============================================================================
// DEFAULT TESTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 900*time.Millisecond, cfg.Editor.Debounce())
	assert.Equal(t, 2*time.Second, cfg.Editor.GhostIdle())
	assert.Equal(t, 200, cfg.Editor.GhostWindowWords)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoadFromPath_TOMLKeepsMissingDefaults(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[backend]
url = "https://ink.example.com"
realtime = true

[editor]
project_id = "novel-1"
debounce_ms = 1500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://ink.example.com", cfg.Backend.URL)
	assert.True(t, cfg.Backend.Realtime)
	assert.Equal(t, "novel-1", cfg.Editor.ProjectID)
	assert.Equal(t, 1500, cfg.Editor.DebounceMs)
	assert.Equal(t, 2000, cfg.Editor.GhostIdleMs)
	assert.True(t, cfg.Editor.GhostEnabled)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0600 && os.Getenv("OS") != "Windows_NT" {
		t.Errorf("permissions = %o, want 600", info.Mode().Perm())
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ui": {"theme": "dark"}}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Backend.URL)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "ui.theme", verrs[0].Field)
}

func TestLoad_ConfigEnvPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0600))
	t.Setenv("INKWELL_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Editor.ProjectID = "p9"
	cfg.Backend.Token = "secret"
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# inkwell configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.Backend.URL = "not a url" }, "backend.url"},
		{"bad scheme", func(c *Config) { c.Backend.URL = "ftp://host" }, "backend.url"},
		{"zero timeout", func(c *Config) { c.Backend.TimeoutSecs = 0 }, "backend.timeout_secs"},
		{"tiny debounce", func(c *Config) { c.Editor.DebounceMs = 10 }, "editor.debounce_ms"},
		{"no window", func(c *Config) { c.Editor.GhostWindowWords = 0 }, "editor.ghost_window_words"},
		{"no storage path", func(c *Config) { c.Storage.Path = " " }, "storage.path"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidate_DisabledStorageNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Enabled = false
	cfg.Storage.Path = ""
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// ENV TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("INKWELL_BACKEND_URL", "http://backend:9000")
	t.Setenv("INKWELL_TOKEN", "tok")
	t.Setenv("INKWELL_PROJECT", "p2")
	t.Setenv("INKWELL_DEBOUNCE_MS", "1200")
	t.Setenv("INKWELL_LOG_LEVEL", "warn")
	t.Setenv("INKWELL_REALTIME", "yes")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "http://backend:9000", cfg.Backend.URL)
	assert.Equal(t, "tok", cfg.Backend.Token)
	assert.Equal(t, "p2", cfg.Editor.ProjectID)
	assert.Equal(t, 1200, cfg.Editor.DebounceMs)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Backend.Realtime)
}

func TestApplyEnvOverrides_IgnoresBadNumber(t *testing.T) {
	isolate(t)
	t.Setenv("INKWELL_DEBOUNCE_MS", "soon")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 900, cfg.Editor.DebounceMs)
}

// =============================================================================
// GET/SET TESTS
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("editor.debounce_ms", "1500"))
	v, err := cfg.Get("editor.debounce_ms")
	require.NoError(t, err)
	assert.Equal(t, 1500, v)

	require.NoError(t, cfg.Set("backend.realtime", "true"))
	assert.True(t, cfg.Backend.Realtime)

	require.NoError(t, cfg.Set("backend.requests_per_second", "2.5"))
	assert.Equal(t, 2.5, cfg.Backend.RequestsPerSecond)

	require.NoError(t, cfg.Set("ui.theme", "dark"))
	assert.Equal(t, "dark", cfg.UI.Theme)

	assert.Error(t, cfg.Set("editor.debounce_ms", "soon"))
	assert.Error(t, cfg.Set("editor.nope", "1"))
	_, err = cfg.Get("editor")
	assert.Error(t, err)
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestKeysResolve(t *testing.T) {
	cfg := Default()
	for _, k := range Keys() {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Get(%q): %v", k, err)
		}
	}
}

func TestString_RedactsToken(t *testing.T) {
	cfg := Default()
	cfg.Backend.Token = "super-secret"
	s := cfg.String()
	assert.NotContains(t, s, "super-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "super-secret", cfg.Backend.Token)
}
