// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/config"
	"github.com/inkwell-studio/inkwell/internal/logging"
	"github.com/inkwell-studio/inkwell/internal/session"
	"github.com/inkwell-studio/inkwell/internal/storage"
)

// =============================================================================
// APP
// =============================================================================

// App holds what the commands share: the global flags and everything built
// from the configuration.
type App struct {
	// Global flags
	ConfigPath string
	Project    string
	BackendURL string
	LogLevel   string

	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// Config loads the configuration once and applies the global flags over
// the file and the environment.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	path := a.ConfigPath
	if path == "" {
		path = os.Getenv("INKWELL_CONFIG")
	}

	var cfg *config.Config
	var err error
	if path != "" {
		path = config.ExpandHome(path)
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, &ConfigError{Path: path, Err: statErr}
		}
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	if a.Project != "" {
		cfg.Editor.ProjectID = a.Project
	}
	if a.BackendURL != "" {
		cfg.Backend.URL = a.BackendURL
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	a.cfg = cfg
	return cfg, nil
}

// configPath is where "config set" writes.
func (a *App) configPath() (string, error) {
	if a.ConfigPath != "" {
		return config.ExpandHome(a.ConfigPath), nil
	}
	if p := os.Getenv("INKWELL_CONFIG"); p != "" {
		return config.ExpandHome(p), nil
	}
	return config.ConfigPathTOML()
}

// Logger builds the logger. When toFile is set and a log file is
// configured, the log goes there instead of stderr.
func (a *App) Logger(toFile bool) (*slog.Logger, error) {
	if a.logger != nil {
		return a.logger, nil
	}
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}

	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if toFile {
		opts.File = config.ExpandHome(cfg.Log.File)
		if opts.File == "" {
			if dir, err := config.ConfigDir(); err == nil {
				opts.File = filepath.Join(dir, "inkwell.log")
			} else {
				opts.Writer = io.Discard
			}
		}
	}
	logger, closer, err := logging.Setup(opts)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	a.closers = append(a.closers, closer)
	a.logger = logger
	return logger, nil
}

// Client builds an HTTP backend client from the configuration.
func (a *App) Client() (*backend.Client, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	return backend.NewClient(&backend.Config{
		BaseURL:           cfg.Backend.URL,
		Token:             cfg.Backend.Token,
		Timeout:           cfg.Backend.Timeout(),
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	}), nil
}

// Backend returns the client a session talks to. With backend.realtime set
// it dials the socket, falling back to plain HTTP when that fails.
func (a *App) Backend(ctx context.Context) (session.Backend, error) {
	client, err := a.Client()
	if err != nil {
		return nil, err
	}
	cfg, _ := a.Config()
	if !cfg.Backend.Realtime {
		return client, nil
	}

	logger, err := a.Logger(false)
	if err != nil {
		return nil, err
	}
	ccfg := client.Config()
	sock, err := backend.Dial(ctx, &ccfg)
	if err != nil {
		logger.Warn("SOCKET_DIAL_FAILED", "url", backend.SocketURL(ccfg.BaseURL), "error", err)
		sock = nil
	}
	rt := backend.NewRealtime(client, sock, logger)
	a.closers = append(a.closers, rt)
	return rt, nil
}

// DraftStore opens the local draft store. It fails when storage is
// disabled.
func (a *App) DraftStore() (*storage.Store, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	if !cfg.Storage.Enabled {
		return nil, &UsageError{Message: "local drafts are disabled (set storage.enabled = true)"}
	}
	store, err := storage.Open(&storage.Config{
		Path:      config.ExpandHome(cfg.Storage.Path),
		MaxDrafts: cfg.Storage.MaxDrafts,
	})
	if err != nil {
		return nil, fmt.Errorf("open drafts %s: %w", cfg.Storage.Path, err)
	}
	a.closers = append(a.closers, store)
	return store, nil
}

// Drafts opens the local draft store for a session, or returns nil when it
// is disabled or cannot be opened.
func (a *App) Drafts() session.DraftStore {
	store, err := a.DraftStore()
	if err != nil {
		var usage *UsageError
		if logger, _ := a.Logger(false); logger != nil && !errors.As(err, &usage) {
			logger.Warn("DRAFTS_UNAVAILABLE", "error", err)
		}
		return nil
	}
	return store
}

// SessionConfig maps the editor settings onto a session.
func (a *App) SessionConfig(logger *slog.Logger) (session.Config, error) {
	cfg, err := a.Config()
	if err != nil {
		return session.Config{}, err
	}
	sc := session.DefaultConfig()
	sc.Project = cfg.Editor.ProjectID
	sc.SaveDelay = cfg.Editor.Debounce()
	sc.GhostEnabled = cfg.Editor.GhostEnabled
	sc.GhostIdle = cfg.Editor.GhostIdle()
	sc.GhostWindow = cfg.Editor.GhostWindowWords
	sc.Logger = logger
	return sc, nil
}

// Close releases everything the app opened, newest first.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	edit := newEditCommand(app)

	root := &cobra.Command{
		Use:   "inkwell [FILE]",
		Short: "Terminal editor with live prose analysis",
		Long: `inkwell is a terminal editor for fiction. It autosaves to the
Inkwell backend, highlights spelling, grammar and consistency alerts in
place, and offers inline continuations while you pause.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyColorMode()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return edit.RunE(cmd, args)
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Message: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&app.ConfigPath, "config", "", "config file (default ~/.inkwell/config.toml)")
	flags.StringVarP(&app.Project, "project", "p", "", "backend project id")
	flags.StringVar(&app.BackendURL, "backend", "", "backend base URL")
	flags.StringVar(&app.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		edit,
		newCheckCommand(app),
		newWatchCommand(app),
		newBrainCommand(app),
		newDraftsCommand(app),
		newConfigCommand(app),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the exit code.
func Execute() int {
	app := &App{}
	defer app.Close()

	root := NewRootCommand(app)
	if err := root.Execute(); err != nil {
		red := color.New(color.FgRed, color.Bold).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		if strings.HasPrefix(err.Error(), "unknown command") {
			return ExitUsageError
		}
		return GetExitCode(err)
	}
	return ExitSuccess
}
