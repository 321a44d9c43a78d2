// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/mockserver"
)

var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// newMockBackend serves the in-memory backend and returns a config file
// pointing at it.
func newMockBackend(t *testing.T) (*mockserver.Server, string) {
	t.Helper()
	srv := mockserver.New(mockserver.Config{RateLimit: -1})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, writeConfig(t, ts.URL)
}

func findPoint(t *testing.T, srv *mockserver.Server, project, title string) backend.PlotPoint {
	t.Helper()
	threads, ok := srv.Store().Threads(project)
	require.True(t, ok)
	for _, p := range threads.PlotPoints {
		if p.Title == title {
			return p
		}
	}
	t.Fatalf("no plot point %q", title)
	return backend.PlotPoint{}
}

func TestBrainSetupAndEntities(t *testing.T) {
	srv, cfgPath := newMockBackend(t)

	out, err := run(t, "--config", cfgPath, "brain", "setup",
		"--title", "Saltwind", "--genre", "Fantasy",
		"--character", "Mara: a harbor pilot", "--character", "Tobin",
		"--world", "A drowned coast.")
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] Created project")
	assert.Contains(t, out, "[i] Use it with: inkwell config set editor.project_id")
	project := uuidPattern.FindString(out)
	require.NotEmpty(t, project)

	srv.Store().Save(project, "Mara ran for the docks.")

	out, err = run(t, "--config", cfgPath, "-p", project, "brain", "update", "mara", "status=injured", "age=31")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated Mara: age, status")

	mara := srv.Store().Brain(project).Entities[0]
	assert.Equal(t, "injured", mara.Metadata["status"])
	assert.Equal(t, 31.0, mara.Metadata["age"])
	assert.Equal(t, []any{}, mara.Metadata["inventory"], "fields not named are kept")

	out, err = run(t, "--config", cfgPath, "-p", project, "brain", "refresh", "Mara")
	require.NoError(t, err)
	assert.Contains(t, out, "Refreshed Mara")
	assert.Contains(t, out, "Persona: a harbor pilot. Named in 1 of 1 drafts.")
	assert.Contains(t, out, "Story:   Mara ran for the docks.")
	assert.Equal(t, "injured", srv.Store().Brain(project).Entities[0].Metadata["status"])

	_, err = run(t, "--config", cfgPath, "-p", project, "brain", "refresh", "Nobody")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestBrainSetupUsageErrors(t *testing.T) {
	_, cfgPath := newMockBackend(t)

	_, err := run(t, "--config", cfgPath, "brain", "setup", "--character", "Mara")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = run(t, "--config", cfgPath, "brain", "setup", "--title", "x", "--character", ": no name")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = run(t, "--config", cfgPath, "-p", "p1", "brain", "update", "Mara", "status")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = run(t, "--config", cfgPath, "brain", "extract")
	assert.ErrorIs(t, err, errNoProject)
}

func TestBrainPlotEditing(t *testing.T) {
	srv, cfgPath := newMockBackend(t)
	srv.Store().Save("p1", "The storm broke over the harbor.")
	brain := func(args ...string) string {
		t.Helper()
		out, err := run(t, append([]string{"--config", cfgPath, "-p", "p1", "brain"}, args...)...)
		require.NoError(t, err)
		return out
	}

	assert.Contains(t, brain("extract"), "Extracted 1 plot point")
	assert.Contains(t, brain("extract"), "No new plot points")
	storm := findPoint(t, srv, "p1", "The storm broke over the harbor.")

	assert.Contains(t, brain("thread", "add", "Revenge", "--color", "#ff0000"), `Created thread "Revenge"`)
	assert.Contains(t, brain("point", "add", "Duel", "--at", "5", "-t", "climax"), `Created point "Duel"`)
	duel := findPoint(t, srv, "p1", "Duel")
	assert.Equal(t, "CLIMAX", duel.EventType)
	assert.Equal(t, 5.0, duel.TimelinePosition)

	assert.Contains(t, brain("point", "set", duel.ID, "--title", "The Duel", "--at", "0"), `Updated point "The Duel"`)
	duel = findPoint(t, srv, "p1", "The Duel")
	assert.Zero(t, duel.TimelinePosition, "an explicit zero is applied")
	assert.Equal(t, "CLIMAX", duel.EventType)

	out := brain("link", storm.ID, duel.ID, "-t", "causes")
	assert.Contains(t, out, "CAUSES")
	threads, _ := srv.Store().Threads("p1")
	require.Len(t, threads.Connections, 1)
	link := threads.Connections[0]

	out = brain()
	assert.Contains(t, out, "The Duel")
	assert.Contains(t, out, duel.ID, "point ids are listed for editing")
	assert.Contains(t, out, "1 connection between plot points")

	assert.Contains(t, brain("unlink", link.ID), "Removed connection")
	assert.Contains(t, brain("point", "rm", duel.ID), "Deleted point")
	threads, _ = srv.Store().Threads("p1")
	assert.Len(t, threads.PlotPoints, 1)
	assert.Empty(t, threads.Connections)
}

func TestBrainPlotEditingErrors(t *testing.T) {
	_, cfgPath := newMockBackend(t)

	_, err := run(t, "--config", cfgPath, "-p", "p1", "brain", "point", "set", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err), "nothing to change")

	_, err = run(t, "--config", cfgPath, "-p", "p1", "brain", "point", "rm", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	_, err = run(t, "--config", cfgPath, "-p", "p1", "brain", "extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No narrative chunks found")
}

func TestParseFields(t *testing.T) {
	got, err := parseFields([]string{"status=injured", "age=31", `inventory=["lamp"]`, "note=", "alive=true"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"status":    "injured",
		"age":       31.0,
		"inventory": []any{"lamp"},
		"note":      "",
		"alive":     true,
	}, got)

	_, err = parseFields([]string{"=x"})
	assert.Error(t, err)
}

func TestParseCharacters(t *testing.T) {
	got, err := parseCharacters([]string{"Mara: a harbor pilot: retired", " Tobin "})
	require.NoError(t, err)
	assert.Equal(t, []backend.CharacterSeed{
		{Name: "Mara", Description: "a harbor pilot: retired"},
		{Name: "Tobin"},
	}, got)
}
