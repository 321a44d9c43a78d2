// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/util"
)

// brainReport is everything the backend knows about a project's story.
type brainReport struct {
	Project string               `json:"project" yaml:"project"`
	Brain   *backend.StoryBrain  `json:"story_brain" yaml:"story_brain"`
	Threads *backend.PlotThreads `json:"plot" yaml:"plot"`
}

func newBrainCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "brain",
		Short: "Show and edit the project's entities and plot",
		Long: `Without a subcommand, print the project's entities, recent history,
plot threads and plot points. The subcommands create projects, edit
entity metadata and build the plot graph.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrain(cmd.Context(), app, format, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, yaml")
	addBrainCommands(cmd, app)
	return cmd
}

func runBrain(ctx context.Context, app *App, format string, out io.Writer) error {
	format = strings.ToLower(format)
	switch format {
	case "table", "json", "yaml", "yml":
	default:
		return &UsageError{Message: fmt.Sprintf("unsupported format %q (table, json, yaml)", format)}
	}

	cfg, err := app.Config()
	if err != nil {
		return err
	}
	project := cfg.Editor.ProjectID
	if project == "" {
		return errNoProject
	}
	client, err := app.Client()
	if err != nil {
		return err
	}

	report := &brainReport{Project: project}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := client.StoryBrain(gctx, project)
		if err != nil {
			return fmt.Errorf("story brain: %w", err)
		}
		report.Brain = b
		return nil
	})
	g.Go(func() error {
		t, err := client.PlotThread(gctx, project)
		if errors.Is(err, backend.ErrNotFound) {
			// Projects without a timeline have no plot data.
			report.Threads = &backend.PlotThreads{}
			return nil
		}
		if err != nil {
			return fmt.Errorf("plot threads: %w", err)
		}
		report.Threads = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
	printBrain(out, report)
	return nil
}

// =============================================================================
// TABLE OUTPUT
// =============================================================================

func printBrain(out io.Writer, r *brainReport) {
	width := GetTerminalWidth()
	heading := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(out, heading.Render("Entities"))
	if len(r.Brain.Entities) == 0 {
		fmt.Fprintln(out, "  none")
	} else {
		entities := append([]backend.Entity(nil), r.Brain.Entities...)
		sort.SliceStable(entities, func(i, j int) bool {
			return entities[i].Name < entities[j].Name
		})
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("NAME", "TYPE", "DESCRIPTION")
		for _, e := range entities {
			t.Row(e.Name, e.Kind(), util.TruncateWidth(util.OneLine(e.Description), width/2))
		}
		fmt.Fprintln(out, t.Render())
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, heading.Render("Recent history"))
	if len(r.Brain.RecentHistory) == 0 {
		fmt.Fprintln(out, "  none")
	}
	for _, h := range r.Brain.RecentHistory {
		fmt.Fprintf(out, "  - %s\n", util.TruncateWidth(util.OneLine(h.Content), width-6))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, heading.Render("Plot threads"))
	if len(r.Threads.PlotThreads) == 0 {
		fmt.Fprintln(out, "  none")
		return
	}
	points := make(map[string]int)
	for _, p := range r.Threads.PlotPoints {
		points[p.PlotThreadID]++
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("THREAD", "POINTS", "DESCRIPTION")
	for _, th := range r.Threads.PlotThreads {
		t.Row(th.Title, fmt.Sprint(points[th.ID]), util.TruncateWidth(util.OneLine(th.Description), width/2))
	}
	fmt.Fprintln(out, t.Render())

	if len(r.Threads.PlotPoints) > 0 {
		titles := make(map[string]string, len(r.Threads.PlotThreads))
		for _, th := range r.Threads.PlotThreads {
			titles[th.ID] = th.Title
		}
		pt := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("AT", "POINT", "TYPE", "THREAD", "ID")
		for _, p := range r.Threads.PlotPoints {
			pt.Row(fmt.Sprint(p.TimelinePosition), util.TruncateWidth(p.Title, width/3), p.EventType, titles[p.PlotThreadID], p.ID)
		}
		fmt.Fprintln(out, pt.Render())
	}
	if n := len(r.Threads.Connections); n > 0 {
		fmt.Fprintf(out, "  %s between plot points\n", countLabel(n, "connection"))
	}
}
