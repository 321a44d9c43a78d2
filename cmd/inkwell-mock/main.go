// inkwell-mock - an in-memory Inkwell backend for local development.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-studio/inkwell/internal/logging"
	"github.com/inkwell-studio/inkwell/internal/mockserver"
)

// shutdownTimeout bounds the wait for in-flight requests on exit.
const shutdownTimeout = 5 * time.Second

type options struct {
	addr       string
	token      string
	dict       string
	latency    time.Duration
	rateLimit  float64
	maxHistory int
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "inkwell-mock",
		Short: "Run an in-memory Inkwell backend",
		Long: `Run an in-memory Inkwell backend.

Serves the editor routes, the /ws/editor realtime channel, /health and
/metrics with a dictionary spell checker in place of the language model.
Point the editor at it with --backend http://127.0.0.1:8000.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", mockserver.DefaultAddr, "listen address")
	f.StringVar(&opts.token, "token", os.Getenv("INKWELL_TOKEN"), "require this bearer token (default $INKWELL_TOKEN)")
	f.StringVar(&opts.dict, "dict", "", "file of extra dictionary words, one per line")
	f.DurationVar(&opts.latency, "latency", 0, "delay added to every analysis request")
	f.Float64Var(&opts.rateLimit, "rate-limit", mockserver.DefaultRateLimit, "requests per second per client, negative to disable")
	f.IntVar(&opts.maxHistory, "max-history", mockserver.DefaultMaxHistory, "drafts kept per project")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format: text, json")
	return cmd
}

func run(ctx context.Context, opts options) error {
	logger, closer, err := logging.Setup(logging.Options{Level: opts.logLevel, Format: opts.logFormat})
	if err != nil {
		return err
	}
	defer closer.Close()

	words, err := readWords(opts.dict)
	if err != nil {
		return err
	}

	srv := mockserver.New(mockserver.Config{
		Addr:       opts.addr,
		Token:      opts.token,
		Words:      words,
		Latency:    opts.latency,
		RateLimit:  opts.rateLimit,
		MaxHistory: opts.maxHistory,
		Logger:     logger,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

// readWords loads a word list. Blank lines and lines starting with # are
// skipped. An empty path yields no words.
func readWords(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return words, nil
}
