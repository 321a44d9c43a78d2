// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/inkwell-studio/inkwell/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete inkwell configuration.
type Config struct {
	// Backend connection
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Editor timing and project
	Editor EditorConfig `toml:"editor" json:"editor"`

	// Local draft storage
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`
}

// BackendConfig contains analysis backend settings.
type BackendConfig struct {
	// URL is the backend base URL
	URL string `toml:"url" json:"url"`

	// Token is sent as a bearer token when set
	Token string `toml:"token" json:"token"`

	// TimeoutSecs bounds each request
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// RequestsPerSecond limits the request rate
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`

	// Burst is the rate limiter burst size
	Burst int `toml:"burst" json:"burst"`

	// Realtime sends analyze over the /ws/editor socket
	Realtime bool `toml:"realtime" json:"realtime"`
}

// EditorConfig contains editor session settings.
type EditorConfig struct {
	// ProjectID is the backend project; nothing is sent without it
	ProjectID string `toml:"project_id" json:"project_id"`

	// DebounceMs is the autosave window after the last edit
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`

	// GhostIdleMs is the pause before a continuation is requested
	GhostIdleMs int `toml:"ghost_idle_ms" json:"ghost_idle_ms"`

	// GhostWindowWords is how many trailing words are sent
	GhostWindowWords int `toml:"ghost_window_words" json:"ghost_window_words"`

	// GhostEnabled turns idle continuations on
	GhostEnabled bool `toml:"ghost_enabled" json:"ghost_enabled"`
}

// StorageConfig contains local draft storage settings.
type StorageConfig struct {
	// Path is the SQLite database path ("~" is expanded)
	Path string `toml:"path" json:"path"`

	// Enabled turns local drafts on
	Enabled bool `toml:"enabled" json:"enabled"`

	// MaxDrafts is how many versions to keep per project
	MaxDrafts int `toml:"max_drafts" json:"max_drafts"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "light" or "dark"
	Theme string `toml:"theme" json:"theme"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level"`

	// Format is text or json
	Format string `toml:"format" json:"format"`

	// File receives logs while the editor owns the terminal
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:               "http://127.0.0.1:8000",
			TimeoutSecs:       30,
			RequestsPerSecond: 4,
			Burst:             4,
		},
		Editor: EditorConfig{
			DebounceMs:       900,
			GhostIdleMs:      2000,
			GhostWindowWords: 200,
			GhostEnabled:     true,
		},
		Storage: StorageConfig{
			Path:      "~/.inkwell/drafts.db",
			Enabled:   true,
			MaxDrafts: 50,
		},
		UI: UIConfig{
			Theme: "light",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// Debounce returns the autosave window.
func (e EditorConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMs) * time.Millisecond
}

// GhostIdle returns the ghost idle delay.
func (e EditorConfig) GhostIdle() time.Duration {
	return time.Duration(e.GhostIdleMs) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the inkwell configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".inkwell"), nil
}

// ConfigPathTOML returns the path to the TOML config file. INKWELL_CONFIG
// overrides it.
func ConfigPathTOML() (string, error) {
	if p := os.Getenv("INKWELL_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ExpandHome replaces a leading "~" with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ensureSecurePermissions tightens config files to 0600 since they may
// hold a token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json are read as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys missing from the file keep
// the values already in cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path. A new file is created 0600;
// an existing one keeps its mode.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# inkwell configuration file\n")
	buf.WriteString("# Generated by inkwell - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.ReplaceFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field and returns ValidateErrors listing all
// problems, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if u, err := url.Parse(c.Backend.URL); err != nil || u.Host == "" {
		add("backend.url", fmt.Sprintf("invalid URL %q", c.Backend.URL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("backend.url", fmt.Sprintf("unsupported scheme %q (use http or https)", u.Scheme))
	}
	if c.Backend.TimeoutSecs <= 0 || c.Backend.TimeoutSecs > 600 {
		add("backend.timeout_secs", "must be between 1 and 600")
	}
	if c.Backend.RequestsPerSecond < 0 {
		add("backend.requests_per_second", "must not be negative")
	}
	if c.Backend.Burst < 0 {
		add("backend.burst", "must not be negative")
	}

	if c.Editor.DebounceMs < 100 || c.Editor.DebounceMs > 60000 {
		add("editor.debounce_ms", "must be between 100 and 60000")
	}
	if c.Editor.GhostIdleMs < 100 || c.Editor.GhostIdleMs > 60000 {
		add("editor.ghost_idle_ms", "must be between 100 and 60000")
	}
	if c.Editor.GhostWindowWords <= 0 || c.Editor.GhostWindowWords > 2000 {
		add("editor.ghost_window_words", "must be between 1 and 2000")
	}

	if c.Storage.Enabled && strings.TrimSpace(c.Storage.Path) == "" {
		add("storage.path", "required when storage is enabled")
	}
	if c.Storage.MaxDrafts < 0 {
		add("storage.max_drafts", "must not be negative")
	}

	switch c.UI.Theme {
	case "light", "dark":
	default:
		add("ui.theme", fmt.Sprintf("unknown theme %q (use light or dark)", c.UI.Theme))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format", fmt.Sprintf("unknown format %q (use text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - INKWELL_BACKEND_URL: overrides backend.url
//   - INKWELL_TOKEN: overrides backend.token
//   - INKWELL_PROJECT: overrides editor.project_id
//   - INKWELL_DEBOUNCE_MS: overrides editor.debounce_ms
//   - INKWELL_LOG_LEVEL: overrides log.level
//   - INKWELL_REALTIME: set to "1" or "true" to analyze over the socket
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("INKWELL_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("INKWELL_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("INKWELL_PROJECT"); v != "" {
		c.Editor.ProjectID = v
	}
	if v := os.Getenv("INKWELL_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Editor.DebounceMs = ms
		}
	}
	if v := os.Getenv("INKWELL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("INKWELL_REALTIME"); v != "" {
		c.Backend.Realtime = parseBool(v)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "editor.debounce_ms").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Keys returns all configuration keys in dot notation.
func Keys() []string {
	return []string{
		"backend.url",
		"backend.token",
		"backend.timeout_secs",
		"backend.requests_per_second",
		"backend.burst",
		"backend.realtime",
		"editor.project_id",
		"editor.debounce_ms",
		"editor.ghost_idle_ms",
		"editor.ghost_window_words",
		"editor.ghost_enabled",
		"storage.path",
		"storage.enabled",
		"storage.max_drafts",
		"ui.theme",
		"log.level",
		"log.format",
		"log.file",
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as JSON with the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Backend.Token != "" {
		safe.Backend.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
