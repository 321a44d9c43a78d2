// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/ui/styles"
)

// projectClient returns the configured project and a backend client.
func projectClient(app *App) (string, *backend.Client, error) {
	cfg, err := app.Config()
	if err != nil {
		return "", nil, err
	}
	if cfg.Editor.ProjectID == "" {
		return "", nil, errNoProject
	}
	client, err := app.Client()
	if err != nil {
		return "", nil, err
	}
	return cfg.Editor.ProjectID, client, nil
}

// addBrainCommands attaches the commands that change the story brain and
// the plot graph.
func addBrainCommands(cmd *cobra.Command, app *App) {
	thread := &cobra.Command{Use: "thread", Short: "Manage plot threads"}
	thread.AddCommand(newThreadAddCommand(app))

	point := &cobra.Command{Use: "point", Short: "Manage plot points"}
	point.AddCommand(
		newPointAddCommand(app),
		newPointSetCommand(app),
		newPointRemoveCommand(app),
	)

	cmd.AddCommand(
		newSetupCommand(app),
		newEntityUpdateCommand(app),
		newRefreshCommand(app),
		newExtractCommand(app),
		thread,
		point,
		newLinkCommand(app),
		newUnlinkCommand(app),
	)
}

// =============================================================================
// PROJECT SETUP
// =============================================================================

func newSetupCommand(app *App) *cobra.Command {
	var setup backend.ProjectSetup
	var characters []string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create a project with its characters and world",
		Long: `Create a backend project from a setup form.

Each --character is "Name" or "Name: description". The world setting
becomes the project's first draft.`,
		Example: `  inkwell brain setup --title Saltwind --genre Fantasy \
    --character "Mara: a harbor pilot" --character Tobin \
    --world "A drowned coast of lighthouses"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := parseCharacters(characters)
			if err != nil {
				return err
			}
			setup.Characters = seeds
			return runSetup(cmd.Context(), app, setup, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&setup.Title, "title", "", "project title (required)")
	f.StringVar(&setup.Genre, "genre", "", "genre")
	f.StringVar(&setup.Perspective, "perspective", "", "narrative perspective, e.g. \"third person limited\"")
	f.StringVar(&setup.Tone, "tone", "", "tone")
	f.StringArrayVar(&characters, "character", nil, "character as \"Name: description\" (repeatable)")
	f.StringVar(&setup.WorldSetting, "world", "", "world setting")
	f.StringVar(&setup.UserID, "user", "", "owner user id")
	return cmd
}

// parseCharacters reads "Name" or "Name: description" values.
func parseCharacters(values []string) ([]backend.CharacterSeed, error) {
	seeds := make([]backend.CharacterSeed, 0, len(values))
	for _, v := range values {
		name, desc, _ := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &UsageError{Message: fmt.Sprintf("character %q has no name", v)}
		}
		seeds = append(seeds, backend.CharacterSeed{Name: name, Description: strings.TrimSpace(desc)})
	}
	return seeds, nil
}

func runSetup(ctx context.Context, app *App, setup backend.ProjectSetup, out io.Writer) error {
	if strings.TrimSpace(setup.Title) == "" {
		return &UsageError{Message: "--title is required"}
	}
	client, err := app.Client()
	if err != nil {
		return err
	}
	id, err := client.SetupProject(ctx, setup)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	fmt.Fprintln(out, styles.RenderSuccess("Created project "+id))
	fmt.Fprintln(out, styles.RenderInfo("Use it with: inkwell config set editor.project_id "+id))
	return nil
}

// =============================================================================
// ENTITIES
// =============================================================================

// findEntity resolves ref, an entity id or a case-insensitive name.
func findEntity(ctx context.Context, client *backend.Client, project, ref string) (*backend.Entity, error) {
	brain, err := client.StoryBrain(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("story brain: %w", err)
	}
	for i, e := range brain.Entities {
		if e.ID != "" && e.ID == ref {
			return &brain.Entities[i], nil
		}
	}
	for i, e := range brain.Entities {
		if strings.EqualFold(e.Name, ref) {
			return &brain.Entities[i], nil
		}
	}
	return nil, &backend.ClientError{Type: backend.ErrTypeNotFound, Message: fmt.Sprintf("no entity %q in project %s", ref, project)}
}

func newEntityUpdateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update ENTITY KEY=VALUE...",
		Short: "Change an entity's metadata",
		Long: `Change metadata fields of an entity, named by id or by name.

Values are read as JSON when they parse, so status=injured sets a string,
age=31 a number and inventory='["lamp"]' a list. Other fields are kept.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			return runEntityUpdate(cmd.Context(), app, args[0], fields, cmd.OutOrStdout())
		},
	}
}

// parseFields reads KEY=VALUE pairs, decoding each value as JSON when it
// is valid JSON and keeping it as a string otherwise.
func parseFields(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &UsageError{Message: fmt.Sprintf("expected KEY=VALUE, got %q", p)}
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}

func runEntityUpdate(ctx context.Context, app *App, ref string, fields map[string]any, out io.Writer) error {
	project, client, err := projectClient(app)
	if err != nil {
		return err
	}
	e, err := findEntity(ctx, client, project, ref)
	if err != nil {
		return err
	}

	meta := maps.Clone(e.Metadata)
	if meta == nil {
		meta = make(map[string]any, len(fields))
	}
	maps.Copy(meta, fields)

	if _, err := client.UpdateEntity(ctx, e.ID, meta); err != nil {
		return fmt.Errorf("update %s: %w", e.Name, err)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(out, styles.RenderSuccess(fmt.Sprintf("Updated %s: %s", e.Name, strings.Join(keys, ", "))))
	return nil
}

func newRefreshCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh CHARACTER",
		Short: "Regenerate a character's persona and story summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd.Context(), app, args[0], cmd.OutOrStdout())
		},
	}
}

func runRefresh(ctx context.Context, app *App, ref string, out io.Writer) error {
	project, client, err := projectClient(app)
	if err != nil {
		return err
	}
	e, err := findEntity(ctx, client, project, ref)
	if err != nil {
		return err
	}
	if e.Kind() != "CHARACTER" {
		return &UsageError{Message: fmt.Sprintf("%s is a %s, not a character", e.Name, strings.ToLower(e.Kind()))}
	}

	summary, err := client.RefreshCharacterSummary(ctx, project, e.ID)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", e.Name, err)
	}
	fmt.Fprintln(out, styles.RenderSuccess("Refreshed "+e.Name))
	if s := summary.Text("persona_summary"); s != "" {
		fmt.Fprintf(out, "  Persona: %s\n", s)
	}
	if s := summary.Text("story_summary"); s != "" {
		fmt.Fprintf(out, "  Story:   %s\n", s)
	}
	return nil
}

// =============================================================================
// PLOT
// =============================================================================

func newExtractCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Turn the project's drafts into plot points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, client, err := projectClient(app)
			if err != nil {
				return err
			}
			res, err := client.ExtractPlotPoints(cmd.Context(), project)
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			out := cmd.OutOrStdout()
			if res.PlotPointsCreated == 0 {
				fmt.Fprintln(out, styles.RenderInfo("No new plot points"))
				return nil
			}
			fmt.Fprintln(out, styles.RenderSuccess("Extracted "+countLabel(res.PlotPointsCreated, "plot point")))
			return nil
		},
	}
}

func newThreadAddCommand(app *App) *cobra.Command {
	var in backend.NewPlotThread
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a plot thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, client, err := projectClient(app)
			if err != nil {
				return err
			}
			in.Title = args[0]
			t, err := client.CreatePlotThread(cmd.Context(), project, in)
			if err != nil {
				return fmt.Errorf("create thread: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Created thread %q (%s)", t.Title, t.ID)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "thread description")
	cmd.Flags().StringVar(&in.Color, "color", "", "display color, e.g. #7C3AED")
	return cmd
}

func newPointAddCommand(app *App) *cobra.Command {
	var in backend.NewPlotPoint
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a plot point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, client, err := projectClient(app)
			if err != nil {
				return err
			}
			in.Title = args[0]
			in.EventType = strings.ToUpper(in.EventType)
			pt, err := client.CreatePlotPoint(cmd.Context(), project, in)
			if err != nil {
				return fmt.Errorf("create point: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Created point %q (%s)", pt.Title, pt.ID)))
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&in.TimelinePosition, "at", 0, "timeline position")
	f.StringVar(&in.PlotThreadID, "thread", "", "thread id (default: the first thread)")
	f.StringVarP(&in.Description, "description", "d", "", "point description")
	f.StringVarP(&in.EventType, "type", "t", "", "event type, e.g. CLIMAX")
	return cmd
}

func newPointSetCommand(app *App) *cobra.Command {
	var (
		title, description, eventType string
		position                      int
	)
	cmd := &cobra.Command{
		Use:   "set POINT_ID",
		Short: "Change fields of a plot point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch backend.PlotPointPatch
			f := cmd.Flags()
			if f.Changed("title") {
				patch.Title = &title
			}
			if f.Changed("description") {
				patch.Description = &description
			}
			if f.Changed("type") {
				eventType = strings.ToUpper(eventType)
				patch.EventType = &eventType
			}
			if f.Changed("at") {
				patch.TimelinePosition = &position
			}
			if patch.Empty() {
				return &UsageError{Message: "nothing to change (use --title, --description, --type or --at)"}
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			pt, err := client.UpdatePlotPoint(cmd.Context(), args[0], patch)
			if err != nil {
				return fmt.Errorf("update point: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Updated point %q", pt.Title)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "new title")
	f.StringVarP(&description, "description", "d", "", "new description")
	f.StringVarP(&eventType, "type", "t", "", "new event type")
	f.IntVar(&position, "at", 0, "new timeline position")
	return cmd
}

func newPointRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm POINT_ID",
		Aliases: []string{"delete"},
		Short:   "Delete a plot point and its connections",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			if err := client.DeletePlotPoint(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete point: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Deleted point "+args[0]))
			return nil
		},
	}
}

func newLinkCommand(app *App) *cobra.Command {
	var in backend.NewConnection
	cmd := &cobra.Command{
		Use:   "link FROM_ID TO_ID",
		Short: "Connect two plot points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			in.FromPointID, in.ToPointID = args[0], args[1]
			in.ConnectionType = strings.ToUpper(in.ConnectionType)
			c, err := client.Connect(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("link: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Linked %s %s %s (%s)", c.FromPointID, c.ConnectionType, c.ToPointID, c.ID)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.ConnectionType, "type", "t", "", "connection type (default FOLLOWS)")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "connection description")
	return cmd
}

func newUnlinkCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink CONNECTION_ID",
		Short: "Remove a connection between plot points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			if err := client.Disconnect(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("unlink: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Removed connection "+args[0]))
			return nil
		},
	}
}
