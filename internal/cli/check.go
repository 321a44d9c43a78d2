// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/export"
	"github.com/inkwell-studio/inkwell/internal/session"
	"github.com/inkwell-studio/inkwell/internal/util"
)

// checkOptions are the flags of the check command.
type checkOptions struct {
	Format      string
	OutputDir   string
	Open        bool
	Concurrency int
	FailOnAlert bool
}

func newCheckCommand(app *App) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check GLOB...",
		Short: "Analyze files and print their alerts",
		Long: `Analyze every file matching the patterns and print the alerts found.
Patterns use doublestar syntax, so "chapters/**/*.txt" walks subdirectories.
Files are analyzed concurrently; a failure on one file is reported with the
others.`,
		Example: `  inkwell check -p p1 chapter1.txt
  inkwell check -p p1 "chapters/**/*.{txt,html}" --format markdown
  inkwell check -p p1 "*.txt" --format html --output reports/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), app, opts, args, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Format, "format", "f", "text", "output format: text, "+strings.Join(export.Formats, ", "))
	f.StringVarP(&opts.OutputDir, "output", "o", "", "write the report to a file in this directory")
	f.BoolVar(&opts.Open, "open", false, "open the written report")
	f.IntVarP(&opts.Concurrency, "jobs", "j", 4, "files analyzed at once")
	f.BoolVar(&opts.FailOnAlert, "fail-on-alert", false, "exit 1 when any alert is found")
	return cmd
}

func runCheck(ctx context.Context, app *App, opts *checkOptions, patterns []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format := strings.ToLower(opts.Format)
	if format == "text" {
		if opts.OutputDir != "" {
			return &UsageError{Message: "--output needs --format " + strings.Join(export.Formats, "|")}
		}
	} else if _, err := export.New(format, nil); err != nil {
		return &UsageError{Message: err.Error()}
	}

	cfg, err := app.Config()
	if err != nil {
		return err
	}
	if cfg.Editor.ProjectID == "" {
		return errNoProject
	}
	logger, err := app.Logger(false)
	if err != nil {
		return err
	}

	files, err := expandPatterns(patterns)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	if len(files) == 0 {
		return &UsageError{Message: "no files match " + strings.Join(patterns, " ")}
	}

	be, err := app.Backend(ctx)
	if err != nil {
		return err
	}
	sc, err := app.SessionConfig(logger)
	if err != nil {
		return err
	}
	sc.GhostEnabled = false

	reports := make([]*export.Report, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			reports[i] = checkFile(gctx, be, sc, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := writeReports(out, reports, opts, format, cfg.UI.Theme); err != nil {
		return err
	}
	return checkResult(reports, opts.FailOnAlert)
}

// checkFile analyzes one file in a throwaway session. Failures are recorded
// on the report.
func checkFile(ctx context.Context, be session.Backend, sc session.Config, file string) *export.Report {
	report := &export.Report{File: file, Project: sc.Project, CheckedAt: time.Now()}

	text, err := readDocumentFile(file)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	sess := session.New(sc, be)
	defer sess.Close(ctx)
	sess.Load(text)

	analysis, err := sess.Analyze(ctx)
	report.Document = sess.Document()
	report.Words = report.Document.Words()
	if err != nil {
		report.Error = err.Error()
		return report
	}
	if analysis != nil {
		report.Alerts = analysis.Alerts
		report.Entities = analysis.Entities
	}
	return report
}

// checkResult turns per-file failures into the command's error.
func checkResult(reports []*export.Report, failOnAlert bool) error {
	var failed []string
	for _, r := range reports {
		if r.Error != "" {
			failed = append(failed, r.File)
		}
	}
	if len(failed) > 0 {
		return &CommandError{
			Command: "check",
			Action:  "analyze",
			Reason:  fmt.Sprintf("%d of %d files failed (%s)", len(failed), len(reports), strings.Join(failed, ", ")),
		}
	}
	if failOnAlert && export.Total(reports) > 0 {
		return &CommandError{Command: "check", Action: "analyze", Reason: countLabel(export.Total(reports), "alert") + " found"}
	}
	return nil
}

// expandPatterns resolves each pattern to the files it matches, sorted
// and without duplicates. A pattern without meta characters names a file
// directly.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		p = filepath.ToSlash(p)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func writeReports(out io.Writer, reports []*export.Report, opts *checkOptions, format, theme string) error {
	if format == "text" {
		printReports(out, reports)
		return nil
	}

	eopts := export.DefaultOptions()
	eopts.Theme = theme
	eopts.OpenAfterExport = opts.Open
	exporter, err := export.New(format, eopts)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	if opts.OutputDir != "" {
		eopts.OutputDir = opts.OutputDir
		path, err := export.ExportToFile(reports, exporter, eopts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", color.GreenString("Report written:"), path)
		return nil
	}

	content, err := exporter.Export(reports)
	if err != nil {
		return err
	}
	if format == "markdown" && isTerminalWriter(out) && ColorsEnabled() {
		if rendered, err := renderMarkdown(string(content)); err == nil {
			_, err = io.WriteString(out, rendered)
			return err
		}
	}
	_, err = out.Write(content)
	return err
}

// renderMarkdown styles markdown for the terminal.
func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

var (
	fileColor    = color.New(color.Bold)
	errorColor   = color.New(color.FgRed)
	mutedColor   = color.New(color.Faint)
	summaryColor = color.New(color.FgCyan, color.Bold)
)

// kindColor is the terminal color of each alert kind, matching the editor's
// highlight colors.
func kindColor(k alert.Kind) *color.Color {
	switch k.Normalize() {
	case alert.KindSpelling:
		return color.New(color.FgRed)
	case alert.KindGrammar:
		return color.New(color.FgYellow)
	case alert.KindInconsistency:
		return color.New(color.FgMagenta)
	}
	return color.New(color.FgBlue)
}

// printReports writes the human-readable report: one block per file, one
// line per alert.
func printReports(out io.Writer, reports []*export.Report) {
	width := GetTerminalWidth()
	for _, r := range reports {
		fileColor.Fprint(out, r.File)
		if r.Error != "" {
			fmt.Fprint(out, "  ")
			errorColor.Fprintln(out, "error: "+r.Error)
			continue
		}
		mutedColor.Fprintf(out, "  %s  %s\n", countLabel(len(r.Alerts), "alert"), countLabel(r.Words, "word"))

		for _, a := range r.Alerts {
			label := fmt.Sprintf("%-14s", a.Type.Label())
			line := fmt.Sprintf("%q", util.OneLine(a.OriginalText))
			if a.Explanation != "" {
				line += "  " + util.OneLine(a.Explanation)
			}
			fmt.Fprintf(out, "  %s %s\n", kindColor(a.Type).Sprint(label), util.TruncateWidth(line, width-18))
		}
		if len(r.Entities) > 0 {
			names := make([]string, 0, len(r.Entities))
			for _, e := range r.Entities {
				names = append(names, e.Name)
			}
			mutedColor.Fprintf(out, "  entities: %s\n", strings.Join(names, ", "))
		}
	}

	if len(reports) > 1 {
		var parts []string
		var all []alert.Alert
		for _, r := range reports {
			all = append(all, r.Alerts...)
		}
		for _, kc := range export.CountByKind(all) {
			parts = append(parts, fmt.Sprintf("%d %s", kc.Count, strings.ToLower(kc.Kind.Label())))
		}
		summary := fmt.Sprintf("%s in %s", countLabel(len(all), "alert"), countLabel(len(reports), "file"))
		if len(parts) > 0 {
			summary += " (" + strings.Join(parts, ", ") + ")"
		}
		fmt.Fprintln(out)
		summaryColor.Fprintln(out, summary)
	}
}

// countLabel renders "1 alert" or "3 alerts".
func countLabel(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
