// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ghost

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/inkwell-studio/inkwell/internal/schedule"
	"github.com/inkwell-studio/inkwell/internal/textspan"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// DefaultIdle is how long the writer must pause before a request.
	DefaultIdle = 2 * time.Second
	// DefaultWindow is how many trailing words are sent.
	DefaultWindow = 200
)

// FetchFunc asks the backend for a continuation of window.
type FetchFunc func(ctx context.Context, window string) (string, error)

// Config configures a Trigger.
type Config struct {
	Idle    time.Duration
	Window  int
	Timeout time.Duration // per request (default: 30s)
	Clock   schedule.Clock
	Logger  *slog.Logger
}

// =============================================================================
// TRIGGER
// =============================================================================

// Trigger owns the idle timer and the visible suggestion.
type Trigger struct {
	mu       sync.Mutex
	idle     *schedule.Debouncer
	source   func() string
	fetch    FetchFunc
	window   int
	timeout  time.Duration
	logger   *slog.Logger
	current  string
	gen      uint64
	onChange func(string)

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Trigger. source is read when the timer fires, so the
// window always reflects the live document.
func New(cfg Config, source func() string, fetch FetchFunc) *Trigger {
	if cfg.Idle <= 0 {
		cfg.Idle = DefaultIdle
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Trigger{
		idle:    schedule.NewDebouncer(cfg.Clock, cfg.Idle),
		source:  source,
		fetch:   fetch,
		window:  cfg.Window,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnSuggestion registers fn to be called whenever the visible suggestion
// changes (with "" when it is cleared).
func (t *Trigger) OnSuggestion(fn func(string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Keystroke clears the visible suggestion and restarts the idle timer.
func (t *Trigger) Keystroke() {
	notify := t.clear()
	notify()
	t.idle.Trigger(t.fire)
}

// Current returns the visible suggestion, or "".
func (t *Trigger) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Visible reports whether a suggestion is showing.
func (t *Trigger) Visible() bool {
	return t.Current() != ""
}

// Pending reports whether the idle timer is running.
func (t *Trigger) Pending() bool {
	return t.idle.Pending()
}

// Accept joins the visible suggestion onto text and clears it. It returns
// text unchanged and false when nothing is showing.
func (t *Trigger) Accept(text string) (string, bool) {
	t.mu.Lock()
	s := t.current
	if s == "" {
		t.mu.Unlock()
		return text, false
	}
	t.mu.Unlock()

	notify := t.clear()
	t.idle.Cancel()
	notify()
	return Join(text, s), true
}

// Dismiss hides the suggestion and cancels any pending request.
func (t *Trigger) Dismiss() {
	notify := t.clear()
	t.idle.Cancel()
	notify()
}

// Stop cancels the idle timer and any in-flight request.
func (t *Trigger) Stop() {
	t.idle.Cancel()
	t.cancel()
	t.mu.Lock()
	t.gen++
	t.current = ""
	t.mu.Unlock()
}

// clear drops the suggestion and invalidates in-flight requests.
func (t *Trigger) clear() func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	had := t.current != ""
	t.current = ""
	fn := t.onChange
	if !had || fn == nil {
		return func() {}
	}
	return func() { fn("") }
}

func (t *Trigger) fire() {
	t.mu.Lock()
	gen := t.gen
	t.mu.Unlock()

	window := TrailingWindow(t.source(), t.window)
	if textspan.Blank(window) {
		return
	}

	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()
	s, err := t.fetch(ctx, window)
	if err != nil {
		t.logger.Warn("GHOST_FAILED", "words", strings.Count(window, " ")+1, "error", err)
		return
	}
	s = Clean(s)

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		t.logger.Debug("GHOST_STALE", "suggestion", s)
		return
	}
	if s == "" {
		t.mu.Unlock()
		return
	}
	t.current = s
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// TrailingWindow returns the last n whitespace-delimited words of text,
// joined by single spaces.
func TrailingWindow(text string, n int) string {
	words := strings.Fields(text)
	if n > 0 && len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

// Join appends suggestion to text with a single space, unless text is
// empty or already ends in whitespace.
func Join(text, suggestion string) string {
	if text == "" {
		return suggestion
	}
	if r, _ := utf8.DecodeLastRuneInString(text); unicode.IsSpace(r) {
		return text + suggestion
	}
	return text + " " + suggestion
}

// Clean trims the wrapper quotes and "Suggestion:" prefix some models add.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if len(s) >= len("suggestion:") && strings.EqualFold(s[:len("suggestion:")], "suggestion:") {
		s = strings.TrimSpace(s[len("suggestion:"):])
	}
	return strings.TrimSpace(s)
}
