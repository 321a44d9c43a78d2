// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch follows a chapter file that is edited outside inkwell.
//
// The parent directory is watched rather than the file itself so that
// editors which save by writing a temp file and renaming it over the
// original keep being followed. Bursts of events are debounced and the
// file is only reported when its content actually changed.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inkwell-studio/inkwell/internal/schedule"
)

// DefaultDebounce is how long the file must be quiet before it is re-read.
const DefaultDebounce = 200 * time.Millisecond

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("watcher is closed")

// Config configures a Watcher.
type Config struct {
	// Debounce is the quiet period before a re-read (default: 200ms)
	Debounce time.Duration
	Clock    schedule.Clock
	Logger   *slog.Logger
}

// Watcher reports content changes of one file.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	debounce *schedule.Debouncer
	logger   *slog.Logger

	mu       sync.Mutex
	last     string
	onChange func(content string)
	started  bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a watcher for path. The file does not have to exist yet.
func New(path string, cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     abs,
		fs:       fs,
		debounce: schedule.NewDebouncer(cfg.Clock, cfg.Debounce),
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// OnChange registers fn to be called with the new content after each
// change. fn runs on the watcher's timer goroutine.
func (w *Watcher) OnChange(fn func(content string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Read returns the current file content and remembers it as the baseline,
// so only later changes are reported.
func (w *Watcher) Read() (string, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return "", err
	}
	content := normalize(string(data))
	w.mu.Lock()
	w.last = content
	w.mu.Unlock()
	return content, nil
}

// Start begins processing file system events.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.started {
		return nil
	}
	w.started = true
	go w.processEvents()
	return nil
}

// Close stops watching. Pending re-reads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	w.mu.Unlock()

	w.cancel()
	w.debounce.Cancel()
	err := w.fs.Close()
	if started {
		<-w.done
	}
	return err
}

func (w *Watcher) processEvents() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				w.debounce.Trigger(w.reload)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				// Rename-over saves recreate the file right after.
				w.logger.Debug("WATCH_REMOVED", "path", w.path)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("WATCH_ERROR", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("WATCH_READ_FAILED", "path", w.path, "error", err)
		return
	}
	content := normalize(string(data))

	w.mu.Lock()
	if content == w.last {
		w.mu.Unlock()
		return
	}
	w.last = content
	fn := w.onChange
	w.mu.Unlock()

	w.logger.Debug("WATCH_CHANGED", "path", w.path, "bytes", len(content))
	if fn != nil {
		fn(content)
	}
}

func normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
