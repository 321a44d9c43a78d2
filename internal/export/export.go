// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/document"
)

// =============================================================================
// REPORT
// =============================================================================

// Report is the analysis result for one file.
type Report struct {
	File      string           `json:"file" yaml:"file"`
	Project   string           `json:"project,omitempty" yaml:"project,omitempty"`
	CheckedAt time.Time        `json:"checked_at" yaml:"checked_at"`
	Words     int              `json:"words" yaml:"words"`
	Alerts    []alert.Alert    `json:"alerts" yaml:"alerts"`
	Entities  []backend.Entity `json:"entities,omitempty" yaml:"entities,omitempty"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`

	// Document is the highlighted text; only the HTML exporter renders it.
	Document *document.Document `json:"-" yaml:"-"`
}

// KindCount is the number of alerts of one kind.
type KindCount struct {
	Kind  alert.Kind
	Count int
}

// CountByKind tallies alerts per normalized kind, most frequent first and
// ties in kind order.
func CountByKind(alerts []alert.Alert) []KindCount {
	counts := make(map[alert.Kind]int)
	for _, a := range alerts {
		counts[a.Type.Normalize()]++
	}
	out := make([]KindCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Total returns the number of alerts across reports.
func Total(reports []*Report) int {
	n := 0
	for _, r := range reports {
		n += len(r.Alerts)
	}
	return n
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders reports in one format.
type Exporter interface {
	// Export renders reports and returns the content.
	Export(reports []*Report) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Formats lists the names New accepts.
var Formats = []string{"json", "yaml", "markdown", "html"}

// New returns the exporter for format.
func New(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONExporter(opts), nil
	case "yaml", "yml":
		return NewYAMLExporter(opts), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	}
	return nil, fmt.Errorf("unsupported export format: %s", format)
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the header (time, word and alert counts).
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	// Default: "light"
	Theme string

	// Now stamps the report header (default: time.Now)
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "light",
		Now:             time.Now,
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders reports with exporter into OutputDir and returns
// the path written.
func ExportToFile(reports []*Report, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(reports)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	name := "report"
	if len(reports) == 1 {
		name = strings.TrimSuffix(filepath.Base(reports[0].File), filepath.Ext(reports[0].File))
	}
	filename := fmt.Sprintf("inkwell_%s_%s%s",
		sanitizeFilename(name),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal - file was still created successfully
			fmt.Fprintf(os.Stderr, "Warning: Could not open file: %v\n", err)
		}
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		return "report"
	}
	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
