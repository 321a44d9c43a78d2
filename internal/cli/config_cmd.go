// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwell-studio/inkwell/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the configuration",
		Long: `Inspect and change the configuration file.

Keys use dot notation, for example editor.project_id or backend.url.
"show" prints the effective configuration, after environment variables and
flags; "set" edits only the file.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := app.Config()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:       "get KEY",
			Short:     "Print one configuration value",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.Keys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigGet(app, args[0], cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:       "set KEY VALUE",
			Short:     "Change one value in the configuration file",
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.Keys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(app, args[0], args[1], cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := app.configPath()
				if err != nil {
					return &ConfigError{Err: err}
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List the configuration keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.Keys(), "\n"))
			},
		},
	)
	return cmd
}

func runConfigGet(app *App, key string, out io.Writer) error {
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	v, err := cfg.Get(key)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	if key == "backend.token" && v != "" {
		v = "[REDACTED]"
	}
	fmt.Fprintln(out, v)
	return nil
}

// runConfigSet edits the file alone, so values that come from the
// environment or flags are not written back.
func runConfigSet(app *App, key, value string, out io.Writer) error {
	path, err := app.configPath()
	if err != nil {
		return &ConfigError{Err: err}
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return &ConfigError{Path: path, Err: err}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return &ConfigError{Path: path, Err: err}
	}

	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}

	fmt.Fprintf(out, "%s %s = %s\n", color.GreenString("Set"), key, value)
	return nil
}
