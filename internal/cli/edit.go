// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/inkwell-studio/inkwell/internal/document"
	"github.com/inkwell-studio/inkwell/internal/session"
	"github.com/inkwell-studio/inkwell/internal/ui/editor"
	"github.com/inkwell-studio/inkwell/internal/ui/styles"
)

// closeTimeout bounds the final save when the editor exits.
const closeTimeout = 10 * time.Second

func newEditCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit FILE",
		Short: "Open FILE in the editor",
		Long: `Open FILE (plain text, or HTML with .html/.htm) in the full-screen
editor. The file does not have to exist; ctrl+s creates it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd.Context(), app, args[0])
		},
	}
}

func runEdit(ctx context.Context, app *App, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !IsTTY() || !IsStdoutTTY() {
		return &UsageError{Message: "the editor needs a terminal; use 'inkwell check' or 'inkwell watch' instead"}
	}

	cfg, err := app.Config()
	if err != nil {
		return err
	}
	// The editor owns the terminal, so logs go to a file.
	logger, err := app.Logger(true)
	if err != nil {
		return err
	}

	text, err := readDocumentFile(path)
	if err != nil {
		return &CommandError{Command: "edit", Action: "open", Reason: path, Err: err}
	}

	be, err := app.Backend(ctx)
	if err != nil {
		return err
	}
	sc, err := app.SessionConfig(logger)
	if err != nil {
		return err
	}
	sc.Drafts = app.Drafts()

	sess := session.New(sc, be)
	sess.Load(text)
	if err := sess.Open(ctx); err != nil {
		logger.Warn("DRAFT_OPEN_FAILED", "error", err)
	}

	m := editor.New(editor.Options{
		Session: sess,
		Theme:   styles.NewTheme(cfg.UI.Theme),
		Path:    path,
		Logger:  logger,
	})
	logger.Info("EDITOR_START", "file", path, "project", cfg.Editor.ProjectID)

	_, runErr := tea.NewProgram(m, tea.WithAltScreen()).Run()

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		logger.Warn("FINAL_SAVE_FAILED", "error", err)
		if runErr == nil {
			return fmt.Errorf("final save failed: %w", err)
		}
	}
	return runErr
}

// readDocumentFile returns the plain text of path. HTML files are parsed
// and their highlight markup dropped. A missing file reads as empty.
func readDocumentFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	if isHTML(path) {
		doc, err := document.FromHTML(f)
		if err != nil {
			return "", err
		}
		return doc.Text(), nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}
