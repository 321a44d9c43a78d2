// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// reportSet is the envelope shared by the JSON and YAML exporters.
type reportSet struct {
	Generator   string    `json:"generator" yaml:"generator"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Files       int       `json:"files" yaml:"files"`
	TotalAlerts int       `json:"total_alerts" yaml:"total_alerts"`
	Reports     []*Report `json:"reports" yaml:"reports"`
}

func newReportSet(reports []*Report, opts *Options) (*reportSet, error) {
	for i, r := range reports {
		if r == nil {
			return nil, fmt.Errorf("report %d is nil", i)
		}
	}
	return &reportSet{
		Generator:   "inkwell",
		GeneratedAt: opts.now().UTC(),
		Files:       len(reports),
		TotalAlerts: Total(reports),
		Reports:     reports,
	}, nil
}

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports reports as indented JSON. Every field is included
// regardless of options so the output can be read back.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts reports to JSON.
func (e *JSONExporter) Export(reports []*Report) ([]byte, error) {
	set, err := newReportSet(reports, e.options)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(set, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter exports reports as YAML.
type YAMLExporter struct {
	options *Options
}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter(opts *Options) *YAMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &YAMLExporter{options: opts}
}

// Export converts reports to YAML.
func (e *YAMLExporter) Export(reports []*Report) ([]byte, error) {
	set, err := newReportSet(reports, e.options)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
