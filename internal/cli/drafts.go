// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/inkwell-studio/inkwell/internal/storage"
	"github.com/inkwell-studio/inkwell/internal/ui/styles"
	"github.com/inkwell-studio/inkwell/internal/util"
)

func newDraftsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Browse and prune the local draft history",
		Long: `Browse the drafts the editor keeps in the local SQLite store.

"list" shows the versions of the current project, or every project when
none is set or --all is given. "show" prints one version. "rm" deletes a
project's drafts and alert snapshot.`,
	}
	cmd.AddCommand(
		newDraftsListCommand(app),
		newDraftsShowCommand(app),
		newDraftsRemoveCommand(app),
	)
	return cmd
}

// =============================================================================
// LIST
// =============================================================================

func newDraftsListCommand(app *App) *cobra.Command {
	var (
		all    bool
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved drafts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			store, err := app.DraftStore()
			if err != nil {
				return err
			}
			ctx, out := cmd.Context(), cmd.OutOrStdout()

			project := cfg.Editor.ProjectID
			if all || project == "" {
				projects, err := store.Projects(ctx)
				if err != nil {
					return fmt.Errorf("list projects: %w", err)
				}
				if asJSON {
					return writeJSONTo(out, projects)
				}
				printProjects(out, projects)
				return nil
			}

			history, err := store.History(ctx, project, limit)
			if err != nil {
				return fmt.Errorf("list drafts of %s: %w", project, err)
			}
			if asJSON {
				return writeJSONTo(out, history)
			}
			printHistory(out, project, history)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every project instead of the current one")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "most versions to list (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeJSONTo(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProjects(out io.Writer, projects []storage.ProjectMeta) {
	if len(projects) == 0 {
		fmt.Fprintln(out, styles.RenderInfo("No drafts saved yet"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PROJECT", "DRAFTS", "ALERTS", "UPDATED")
	for _, p := range projects {
		t.Row(p.Project, strconv.Itoa(p.Drafts), strconv.Itoa(p.Alerts), p.UpdatedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(out, t.Render())
}

func printHistory(out io.Writer, project string, history []storage.DraftMeta) {
	if len(history) == 0 {
		fmt.Fprintln(out, styles.RenderInfo("No drafts saved for "+project))
		return
	}
	width := GetTerminalWidth()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "SAVED", "WORDS", "PREVIEW")
	for _, d := range history {
		t.Row(strconv.FormatInt(d.ID, 10), d.SavedAt.Local().Format(time.DateTime), strconv.Itoa(d.Words),
			util.TruncateWidth(d.Preview, width/2))
	}
	fmt.Fprintln(out, t.Render())
}

// =============================================================================
// SHOW AND REMOVE
// =============================================================================

func newDraftsShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return &UsageError{Message: fmt.Sprintf("draft id must be a positive number, got %q", args[0])}
			}
			store, err := app.DraftStore()
			if err != nil {
				return err
			}
			d, err := store.Draft(cmd.Context(), id)
			if errors.Is(err, storage.ErrDraftNotFound) {
				return &CommandError{Command: "drafts", Action: "show", Reason: fmt.Sprintf("no draft %d", id), Err: err}
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), d.Content)
			if !strings.HasSuffix(d.Content, "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newDraftsRemoveCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm PROJECT...",
		Short: "Delete every draft of the named projects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprintln(out, styles.RenderWarning("This deletes every saved version of "+strings.Join(args, ", ")))
				return &UsageError{Message: "pass --yes to delete"}
			}
			store, err := app.DraftStore()
			if err != nil {
				return err
			}

			failed := 0
			for _, project := range args {
				if err := store.DeleteProject(cmd.Context(), project); err != nil {
					fmt.Fprintln(out, styles.RenderError(fmt.Sprintf("%s: %v", project, err)))
					failed++
					continue
				}
				fmt.Fprintln(out, styles.RenderSuccess("Deleted drafts of "+project))
			}
			if failed > 0 {
				return fmt.Errorf("%s could not be deleted", countLabel(failed, "project"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}
