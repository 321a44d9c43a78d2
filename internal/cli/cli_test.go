// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/config"
)

// =============================================================================
// HELPERS
// =============================================================================

// fakeBackend answers the analyze, story-brain and plot-thread routes.
type fakeBackend struct {
	analyzed atomic.Int32
	failFor  string // content substring that makes analyze fail
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/editor/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProjectID string `json:"project_id"`
			Content   string `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.analyzed.Add(1)
		if f.failFor != "" && strings.Contains(req.Content, f.failFor) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"detail": "model crashed"})
			return
		}
		resp := map[string]any{"status": "success", "alerts": []map[string]string{}}
		if strings.Contains(req.Content, "teh") {
			resp["alerts"] = []map[string]string{{
				"type":          "SPELLING",
				"original_text": "teh",
				"explanation":   "Possible typo found: 'teh'. Did you mean: the?",
			}}
			resp["entities"] = []map[string]string{{"name": "Mara", "type": "CHARACTER"}}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/editor/story-brain/p1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"entities":       []map[string]string{{"name": "Mara", "type": "CHARACTER", "description": "The pilot"}},
			"recent_history": []map[string]string{{"content": "Mara left the harbor."}},
		})
	})
	mux.HandleFunc("/plot-thread/p1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "success",
			"plot_threads": []map[string]string{{"id": "t1", "title": "The voyage"}},
			"plot_points": []map[string]any{
				{"id": "a", "plot_thread_id": "t1", "title": "Departure", "timeline_position": 1},
				{"id": "b", "plot_thread_id": "t1", "title": "Storm", "timeline_position": 2},
			},
			"connections": []map[string]string{{"from_point_id": "a", "to_point_id": "b"}},
		})
	})
	return mux
}

// writeConfig writes a config file pointing at url with local drafts off.
func writeConfig(t *testing.T, url string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.URL = url
	cfg.Storage.Enabled = false
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.SaveTOML(cfg, path))
	return path
}

// run executes the command line and returns stdout and the error.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"INKWELL_CONFIG", "INKWELL_PROJECT", "INKWELL_BACKEND_URL", "INKWELL_TOKEN", "INKWELL_REALTIME", "INKWELL_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	ForceColorsEnabled(false)

	app := &App{}
	defer app.Close()
	root := NewRootCommand(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// =============================================================================
// CHECK
// =============================================================================

func TestCheckPrintsAlerts(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	dir := t.TempDir()
	file := writeFile(t, dir, "chapter.txt", "Mara read teh letter twice.")

	out, err := run(t, "--config", cfgPath, "-p", "p1", "check", file)
	require.NoError(t, err)

	assert.Contains(t, out, "chapter.txt")
	assert.Contains(t, out, "1 alert")
	assert.Contains(t, out, "5 words")
	assert.Contains(t, out, "Spelling")
	assert.Contains(t, out, `"teh"`)
	assert.Contains(t, out, "entities: Mara")
	assert.Equal(t, int32(1), fb.analyzed.Load())
}

func TestCheckGlobConcurrentSummary(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	dir := t.TempDir()
	writeFile(t, dir, "book/one.txt", "teh storm came.")
	writeFile(t, dir, "book/part2/two.txt", "A quiet morning.")
	writeFile(t, dir, "book/part2/three.txt", "teh end.")
	writeFile(t, dir, "book/notes.md", "teh notes are not prose.")

	out, err := run(t, "--config", cfgPath, "-p", "p1", "check", filepath.Join(dir, "book", "**", "*.txt"))
	require.NoError(t, err)

	assert.Equal(t, int32(3), fb.analyzed.Load())
	assert.NotContains(t, out, "notes.md")
	assert.Contains(t, out, "2 alerts in 3 files (2 spelling)")
	// Reports are printed in path order.
	assert.Less(t, strings.Index(out, "one.txt"), strings.Index(out, "three.txt"))
	assert.Less(t, strings.Index(out, "three.txt"), strings.Index(out, "two.txt"))
}

func TestCheckJSONFormat(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)
	file := writeFile(t, t.TempDir(), "chapter.txt", "Mara read teh letter.")

	out, err := run(t, "--config", cfgPath, "-p", "p1", "check", "--format", "json", file)
	require.NoError(t, err)

	var got struct {
		Reports []struct {
			File   string `json:"file"`
			Alerts []struct {
				Type         string `json:"type"`
				OriginalText string `json:"original_text"`
			} `json:"alerts"`
		} `json:"reports"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	require.Len(t, got.Reports, 1)
	require.Len(t, got.Reports[0].Alerts, 1)
	assert.Equal(t, "teh", got.Reports[0].Alerts[0].OriginalText)
}

func TestCheckHTMLReportToDirectory(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)
	file := writeFile(t, t.TempDir(), "chapter.html", "<p>Mara read <b>teh</b> letter.</p>")
	outDir := t.TempDir()

	out, err := run(t, "--config", cfgPath, "-p", "p1", "check", "--format", "html", "--output", outDir, file)
	require.NoError(t, err)
	assert.Contains(t, out, "Report written:")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "inkwell_chapter_"))
	data, err := os.ReadFile(filepath.Join(outDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "teh")
}

func TestCheckReportsFailedFiles(t *testing.T) {
	fb := &fakeBackend{failFor: "storm"}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	dir := t.TempDir()
	good := writeFile(t, dir, "a.txt", "teh harbor.")
	bad := writeFile(t, dir, "b.txt", "The storm.")

	out, err := run(t, "--config", cfgPath, "-p", "p1", "check", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "model crashed")
	assert.Contains(t, out, "Spelling")
	assert.Equal(t, ExitGeneralError, GetExitCode(err))
}

func TestCheckFailOnAlert(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)
	file := writeFile(t, t.TempDir(), "a.txt", "teh harbor.")

	_, err := run(t, "--config", cfgPath, "-p", "p1", "check", "--fail-on-alert", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 alert found")
}

func TestCheckUsageErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)
	file := writeFile(t, t.TempDir(), "a.txt", "text")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no project", []string{"check", file}, "no project set"},
		{"no match", []string{"-p", "p1", "check", filepath.Join(t.TempDir(), "*.txt")}, "no files match"},
		{"bad format", []string{"-p", "p1", "check", "--format", "pdf", file}, "unsupported export format"},
		{"output without format", []string{"-p", "p1", "check", "--output", t.TempDir(), file}, "--output needs --format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", cfgPath}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitUsageError, GetExitCode(err))
		})
	}
}

func TestExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "")
	b := writeFile(t, dir, "sub/b.txt", "")
	writeFile(t, dir, "sub/c.html", "")

	files, err := expandPatterns([]string{filepath.Join(dir, "**", "*.txt"), a})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = expandPatterns([]string{filepath.Join(dir, "[")})
	assert.Error(t, err)
}

// =============================================================================
// BRAIN
// =============================================================================

func TestBrainTable(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "--config", cfgPath, "-p", "p1", "brain")
	require.NoError(t, err)
	assert.Contains(t, out, "Entities")
	assert.Contains(t, out, "Mara")
	assert.Contains(t, out, "The pilot")
	assert.Contains(t, out, "Mara left the harbor.")
	assert.Contains(t, out, "The voyage")
	assert.Contains(t, out, "1 connection between plot points")
}

func TestBrainYAML(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "--config", cfgPath, "-p", "p1", "brain", "--format", "yaml")
	require.NoError(t, err)

	var got struct {
		Project string `yaml:"project"`
		Brain   struct {
			Entities []backend.Entity `yaml:"entities"`
		} `yaml:"story_brain"`
		Plot struct {
			PlotPoints []backend.PlotPoint `yaml:"plot_points"`
		} `yaml:"plot"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "p1", got.Project)
	require.Len(t, got.Brain.Entities, 1)
	assert.Equal(t, "Mara", got.Brain.Entities[0].Name)
	assert.Len(t, got.Plot.PlotPoints, 2)
}

func TestBrainWithoutPlotThreads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/editor/story-brain/p1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"entities":[],"recent_history":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "--config", cfgPath, "-p", "p1", "brain")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "  none"))
}

func TestBrainBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	cfgPath := writeConfig(t, url)

	_, err := run(t, "--config", cfgPath, "-p", "p1", "brain")
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigSetAndGet(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := run(t, "--config", cfgPath, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfgPath, strings.TrimSpace(out))

	out, err = run(t, "--config", cfgPath, "config", "set", "editor.project_id", "p9")
	require.NoError(t, err)
	assert.Contains(t, out, "editor.project_id = p9")

	_, err = run(t, "--config", cfgPath, "config", "set", "editor.debounce_ms", "1500")
	require.NoError(t, err)

	out, err = run(t, "--config", cfgPath, "config", "get", "editor.project_id")
	require.NoError(t, err)
	assert.Equal(t, "p9", strings.TrimSpace(out))

	out, err = run(t, "--config", cfgPath, "config", "get", "editor.debounce_ms")
	require.NoError(t, err)
	assert.Equal(t, "1500", strings.TrimSpace(out))

	// Flags win over the file without being written back.
	out, err = run(t, "--config", cfgPath, "-p", "flag", "config", "get", "editor.project_id")
	require.NoError(t, err)
	assert.Equal(t, "flag", strings.TrimSpace(out))

	cfg, err := config.LoadFromPath(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "p9", cfg.Editor.ProjectID)
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	_, err := run(t, "--config", cfgPath, "config", "set", "ui.theme", "neon")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	_, statErr := os.Stat(cfgPath)
	assert.True(t, os.IsNotExist(statErr))

	_, err = run(t, "--config", cfgPath, "config", "set", "editor.nope", "1")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfigShowRedactsToken(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Token = "secret-token"
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.SaveTOML(cfg, cfgPath))

	out, err := run(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret-token")
	assert.Contains(t, out, "[REDACTED]")

	out, err = run(t, "--config", cfgPath, "config", "get", "backend.token")
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", strings.TrimSpace(out))
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.toml"), "config", "show")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

// =============================================================================
// VERSION, ERRORS, FILES
// =============================================================================

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "inkwell "+Version)

	out, err = run(t, "version", "--format", "json")
	require.NoError(t, err)
	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneralError},
		{"usage", &UsageError{Message: "bad"}, ExitUsageError},
		{"missing project", backend.ErrMissingProject, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("bad toml")}, ExitConfigError},
		{"validation", fmt.Errorf("wrap: %w", config.ValidateErrors{{Field: "ui.theme", Message: "x"}}), ExitConfigError},
		{"unavailable", fmt.Errorf("story brain: %w", &backend.ClientError{Type: backend.ErrTypeUnavailable, Message: "down"}), ExitNetworkError},
		{"timeout", backend.ErrTimeout, ExitTimeoutError},
		{"not found", &backend.ClientError{Type: backend.ErrTypeNotFound, Status: 404}, ExitNotFoundError},
		{"command wraps", &CommandError{Command: "check", Action: "analyze", Reason: "x", Err: backend.ErrUnavailable}, ExitNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestReadDocumentFile(t *testing.T) {
	dir := t.TempDir()

	text, err := readDocumentFile(writeFile(t, dir, "a.txt", "one\r\ntwo"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", text)

	text, err = readDocumentFile(writeFile(t, dir, "b.html",
		`<p>Mara read <span class="highlight-spelling">teh</span> letter.</p><p>Done.</p>`))
	require.NoError(t, err)
	assert.Equal(t, "Mara read teh letter.\nDone.", text)

	text, err = readDocumentFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestEditNeedsTerminal(t *testing.T) {
	if IsTTY() && IsStdoutTTY() {
		t.Skip("running in a terminal")
	}
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	_, err := run(t, "--config", cfgPath, filepath.Join(t.TempDir(), "ch.txt"))
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestCountLabel(t *testing.T) {
	assert.Equal(t, "0 alerts", countLabel(0, "alert"))
	assert.Equal(t, "1 file", countLabel(1, "file"))
	assert.Equal(t, "12 words", countLabel(12, "word"))
}
