// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwell-studio/inkwell/internal/document"
	"github.com/inkwell-studio/inkwell/internal/schedule"
	"github.com/inkwell-studio/inkwell/internal/session"
	"github.com/inkwell-studio/inkwell/internal/watch"
)

func newWatchCommand(app *App) *cobra.Command {
	var analyze bool
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Autosave FILE while it is edited in another editor",
		Long: `Watch FILE and send its content to the backend after every pause in
editing, the same way the editor autosaves. With --analyze the file is
analyzed after each successful save and the alerts are printed.

Stops on Ctrl+C, saving any change not yet sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, app, args[0], analyze, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&analyze, "analyze", "a", false, "analyze after each save")
	return cmd
}

// syncWriter serializes the status lines written from timer goroutines.
type syncWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *syncWriter) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s  %s", color.New(color.Faint).Sprint(time.Now().Format("15:04:05")), fmt.Sprintf(format, args...))
}

func runWatch(ctx context.Context, app *App, path string, analyze bool, out io.Writer) error {
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

	w, err := watch.New(path, watch.Config{Logger: logger})
	if err != nil {
		return &CommandError{Command: "watch", Action: "start", Reason: path, Err: err}
	}
	defer w.Close()

	be, err := app.Backend(ctx)
	if err != nil {
		return err
	}
	sc, err := app.SessionConfig(logger)
	if err != nil {
		return err
	}
	sc.GhostEnabled = false
	sc.Drafts = app.Drafts()

	sess := session.New(sc, be)
	initial, err := w.Read()
	if err != nil && !os.IsNotExist(err) {
		return &CommandError{Command: "watch", Action: "read", Reason: path, Err: err}
	}
	sess.Load(toPlainText(path, initial))

	sw := &syncWriter{out: out}
	analyses := make(chan struct{}, 1)
	sess.OnStatus(func(st schedule.Status) {
		if st == schedule.StatusTyping {
			return
		}
		sw.printf("%s\n", statusColor(st).Sprint(st.String()))
		if st == schedule.StatusSynced && analyze {
			select {
			case analyses <- struct{}{}:
			default:
			}
		}
	})
	w.OnChange(func(content string) {
		sess.ContentChanged(toPlainText(path, content))
	})

	if err := w.Start(); err != nil {
		return err
	}
	sw.printf("Watching %s (project %s)\n", w.Path(), cfg.Editor.ProjectID)

	for {
		select {
		case <-ctx.Done():
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := sess.Close(closeCtx); err != nil {
				return fmt.Errorf("final save failed: %w", err)
			}
			return nil
		case <-analyses:
			result, err := sess.Analyze(ctx)
			if err != nil {
				if ctx.Err() == nil {
					sw.printf("%s\n", errorColor.Sprint("analyze failed: "+err.Error()))
				}
				continue
			}
			if result == nil {
				continue
			}
			sw.printf("%s\n", countLabel(len(result.Alerts), "alert"))
			for _, a := range result.Alerts {
				sw.printf("  %s %q\n", kindColor(a.Type).Sprintf("%-14s", a.Type.Label()), a.OriginalText)
			}
		}
	}
}

// toPlainText drops HTML markup from watched .html files.
func toPlainText(path, content string) string {
	if !isHTML(path) {
		return content
	}
	doc, err := document.FromHTML(strings.NewReader(content))
	if err != nil {
		return content
	}
	return doc.Text()
}

func statusColor(st schedule.Status) *color.Color {
	switch st {
	case schedule.StatusSynced:
		return color.New(color.FgGreen)
	case schedule.StatusSyncError:
		return color.New(color.FgRed)
	case schedule.StatusAnalyzing:
		return color.New(color.FgCyan)
	}
	return color.New(color.Faint)
}
