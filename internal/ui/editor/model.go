// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/compare"
	"github.com/inkwell-studio/inkwell/internal/document"
	"github.com/inkwell-studio/inkwell/internal/schedule"
	"github.com/inkwell-studio/inkwell/internal/session"
	"github.com/inkwell-studio/inkwell/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Mode is what the keyboard currently drives.
type Mode int

const (
	// ModeEdit types into the manuscript.
	ModeEdit Mode = iota
	// ModeSuggestion edits a pending rewrite in the fix dialog.
	ModeSuggestion
	// ModeCompare reviews a full-document rewrite.
	ModeCompare
)

// Options configures a Model.
type Options struct {
	Session *session.Session
	Theme   *styles.Theme

	// Path is the file ctrl+s writes. Empty disables saving.
	Path string

	Keys   *KeyMap
	Logger *slog.Logger
	Now    func() time.Time
}

// Model is the bubbletea model of the editor.
type Model struct {
	sess   *session.Session
	theme  *styles.Theme
	keys   KeyMap
	logger *slog.Logger
	now    func() time.Time

	path string
	html bool

	mode   Mode
	review bool
	width  int
	height int

	textarea textarea.Model
	preview  viewport.Model
	dialog   textinput.Model
	diff     viewport.Model

	snap       session.Snapshot
	lastSynced string
	selected   int // position in snap.Visible
	comparison *compare.Comparison

	analyzing    bool
	fixing       bool
	generating   bool
	busySince    time.Time
	flash        string
	flashIsError bool

	events   chan struct{}
	quitting bool
}

// New creates the editor model. The session should already hold the file
// text; New registers the callbacks that keep the view in step with it.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ThemeLight)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	ta := textarea.New()
	ta.Placeholder = "Start writing..."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Focus()

	dlg := textinput.New()
	dlg.Prompt = "> "
	dlg.CharLimit = 0

	m := Model{
		sess:     opts.Session,
		theme:    opts.Theme,
		keys:     keys,
		logger:   opts.Logger,
		now:      opts.Now,
		path:     opts.Path,
		html:     isHTML(opts.Path),
		textarea: ta,
		preview:  viewport.New(80, 20),
		dialog:   dlg,
		diff:     viewport.New(80, 20),
		events:   make(chan struct{}, 1),
	}

	notify := m.notifier()
	m.sess.OnStatus(func(schedule.Status) { notify() })
	m.sess.OnGhost(func(string) { notify() })
	m.sess.OnChange(func(string) { notify() })

	m.sync()
	return m
}

// notifier returns a func that wakes the listen command. Events coalesce:
// the handler rereads the whole session state anyway.
func (m Model) notifier() func() {
	events := m.events
	return func() {
		select {
		case events <- struct{}{}:
		default:
		}
	}
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Init starts the cursor blink and the session listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, listenCmd(m.events))
}

// Mode returns the current input mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Selected returns the alert index the cursor is on, or -1.
func (m Model) Selected() int {
	if m.selected < 0 || m.selected >= len(m.snap.Visible) {
		return -1
	}
	return m.snap.Visible[m.selected].Index
}

// Flash returns the last status message and whether it reports an error.
func (m Model) Flash() (string, bool) {
	return m.flash, m.flashIsError
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionEventMsg:
		m.sync()
		return m, listenCmd(m.events)

	case AnalyzeDoneMsg:
		return m.handleAnalyzeDone(msg)

	case FixDoneMsg:
		return m.handleFixDone(msg)

	case GenerateDoneMsg:
		return m.handleGenerateDone(msg)

	case FileSavedMsg:
		if msg.Err != nil {
			m.logger.Error("FILE_SAVE_FAILED", "path", msg.Path, "error", msg.Err)
			m.setError(fmt.Sprintf("Could not save %s: %v", filepath.Base(msg.Path), msg.Err))
		} else {
			m.setInfo("Saved " + filepath.Base(msg.Path))
		}
		return m, nil

	case tickMsg:
		if m.busy() {
			return m, tickCmd()
		}
		return m, nil
	}

	// Blink and other internal messages go to whichever input is active.
	var cmd tea.Cmd
	switch m.mode {
	case ModeSuggestion:
		m.dialog, cmd = m.dialog.Update(msg)
	case ModeEdit:
		m.textarea, cmd = m.textarea.Update(msg)
	}
	return m, cmd
}

func (m Model) busy() bool {
	return m.analyzing || m.fixing || m.generating
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)

	const (
		headerHeight    = 1
		statusBarHeight = 1
		ghostHeight     = 1
		borderSize      = 2
		paddingSize     = 2
	)

	editorWidth := m.width - m.alertPanelWidth() - borderSize - paddingSize
	if editorWidth < 10 {
		editorWidth = 10
	}
	editorHeight := m.height - headerHeight - statusBarHeight - ghostHeight - borderSize
	if editorHeight < 1 {
		editorHeight = 1
	}

	m.textarea.SetWidth(editorWidth)
	m.textarea.SetHeight(editorHeight)
	m.preview.Width = editorWidth
	m.preview.Height = editorHeight

	dialogWidth := m.width * 2 / 3
	if dialogWidth < 30 {
		dialogWidth = 30
	}
	m.dialog.Width = dialogWidth - 8
	m.diff.Width = dialogWidth - 6
	m.diff.Height = editorHeight - 6
	if m.diff.Height < 3 {
		m.diff.Height = 3
	}

	m.renderPreview()
	if m.comparison != nil {
		m.diff.SetContent(m.renderComparison(m.comparison))
	}
	return m, nil
}

// alertPanelWidth is zero when the terminal is too narrow for the panel.
func (m Model) alertPanelWidth() int {
	switch m.theme.GetLayoutMode() {
	case styles.LayoutWide:
		return 40
	case styles.LayoutMedium:
		return 28
	default:
		return 0
	}
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeSuggestion:
		return m.handleSuggestionKey(msg)
	case ModeCompare:
		return m.handleCompareKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Analyze):
		if m.analyzing {
			m.setInfo("Analysis already running")
			return m, nil
		}
		m.analyzing = true
		m.busySince = m.now()
		return m, tea.Batch(analyzeCmd(m.sess), tickCmd())

	case key.Matches(msg, m.keys.AcceptGhost) && m.snap.Ghost != "":
		if m.sess.AcceptGhost() {
			m.sync()
			return m, nil
		}
		m.sync()

	case key.Matches(msg, m.keys.NextAlert):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevAlert):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		idx := m.Selected()
		if idx < 0 {
			return m, nil
		}
		if err := m.sess.Dismiss(idx); err != nil {
			m.setError(err.Error())
		}
		m.sync()
		return m, nil

	case key.Matches(msg, m.keys.Fix):
		idx := m.Selected()
		if idx < 0 {
			m.setInfo("No alert selected")
			return m, nil
		}
		if m.fixing {
			m.setInfo("A fix is already running")
			return m, nil
		}
		m.fixing = true
		m.busySince = m.now()
		return m, tea.Batch(fixCmd(m.sess, idx), tickCmd())

	case key.Matches(msg, m.keys.Generate):
		if m.generating {
			return m, nil
		}
		m.generating = true
		m.busySince = m.now()
		return m, tea.Batch(generateCmd(m.sess), tickCmd())

	case key.Matches(msg, m.keys.Review):
		m.review = !m.review
		if m.review {
			m.textarea.Blur()
			m.renderPreview()
			return m, nil
		}
		cmd := m.textarea.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Save):
		if m.path == "" {
			m.setError("No file to save to")
			return m, nil
		}
		return m, saveFileCmd(m.path, m.fileData())
	}

	var cmd tea.Cmd
	if m.review {
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	}

	before := m.textarea.Value()
	m.textarea, cmd = m.textarea.Update(msg)
	if after := m.textarea.Value(); after != before {
		m.lastSynced = after
		m.sess.ContentChanged(after)
		m.refresh()
	} else {
		m.sess.Keystroke()
		m.snap.Ghost = ""
	}
	return m, cmd
}

func (m Model) handleSuggestionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.sess.CancelSuggestion()
		m.closeDialog()
		m.sync()
		cmd := m.textarea.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Apply):
		res, err := m.sess.ApplySuggestion()
		if err != nil {
			m.setError(fmt.Sprintf("Could not apply: %v", err))
			return m, nil
		}
		m.closeDialog()
		m.sync()
		m.setInfo("Applied (" + res.Strategy.String() + ")")
		cmd := m.textarea.Focus()
		return m, cmd
	}

	before := m.dialog.Value()
	var cmd tea.Cmd
	m.dialog, cmd = m.dialog.Update(msg)
	if after := m.dialog.Value(); after != before {
		if err := m.sess.EditSuggestion(after); err != nil {
			m.setError(err.Error())
		}
	}
	return m, cmd
}

func (m Model) handleCompareKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.comparison = nil
		m.mode = ModeEdit
		cmd := m.textarea.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Apply):
		err := m.sess.AcceptGenerated(m.comparison)
		m.comparison = nil
		m.mode = ModeEdit
		if errors.Is(err, session.ErrStale) {
			m.setError("The text changed since the rewrite was made")
		} else if err != nil {
			m.setError(err.Error())
		} else {
			m.setInfo("Rewrite accepted")
		}
		m.sync()
		cmd := m.textarea.Focus()
		return m, cmd
	}

	var cmd tea.Cmd
	m.diff, cmd = m.diff.Update(msg)
	return m, cmd
}

func (m *Model) closeDialog() {
	m.mode = ModeEdit
	m.dialog.Blur()
	m.dialog.SetValue("")
}

func (m *Model) moveSelection(delta int) {
	n := len(m.snap.Visible)
	if n == 0 {
		m.selected = 0
		return
	}
	m.selected = ((m.selected+delta)%n + n) % n
	m.renderPreview()
}

// =============================================================================
// RESULTS
// =============================================================================

func (m Model) handleAnalyzeDone(msg AnalyzeDoneMsg) (tea.Model, tea.Cmd) {
	m.analyzing = false
	m.sync()
	switch {
	case errors.Is(msg.Err, schedule.ErrInFlight):
		m.setInfo("Analysis already running")
	case msg.Err != nil:
		m.setError(fmt.Sprintf("Analyze failed: %v", msg.Err))
	case msg.Analysis == nil && m.sess.Project() == "":
		m.setInfo("Set a project id to analyze")
	case msg.Analysis == nil:
		m.setInfo("Nothing to analyze")
	default:
		m.selected = 0
		m.renderPreview()
		m.setInfo(countLabel(len(m.snap.Visible), "alert"))
	}
	return m, nil
}

func (m Model) handleFixDone(msg FixDoneMsg) (tea.Model, tea.Cmd) {
	m.fixing = false
	m.sync()
	switch {
	case errors.Is(msg.Err, session.ErrNoCandidate):
		m.setInfo("No replacement offered for this word")
		return m, nil
	case errors.Is(msg.Err, session.ErrNoAlert):
		m.setInfo("That alert is gone")
		return m, nil
	case msg.Err != nil:
		m.setError(fmt.Sprintf("Fix failed: %v", msg.Err))
		return m, nil
	case msg.Suggestion == nil:
		m.setInfo("Fixed")
		return m, nil
	}

	m.mode = ModeSuggestion
	m.textarea.Blur()
	m.dialog.SetValue(msg.Suggestion.SuggestedText)
	m.dialog.CursorEnd()
	cmd := m.dialog.Focus()
	return m, cmd
}

func (m Model) handleGenerateDone(msg GenerateDoneMsg) (tea.Model, tea.Cmd) {
	m.generating = false
	switch {
	case msg.Err != nil:
		m.setError(fmt.Sprintf("Rewrite failed: %v", msg.Err))
		return m, nil
	case msg.Comparison == nil:
		m.setInfo("Nothing to rewrite")
		return m, nil
	case msg.Comparison.Identical():
		m.setInfo("No changes suggested")
		return m, nil
	}

	m.comparison = msg.Comparison
	m.mode = ModeCompare
	m.textarea.Blur()
	m.diff.SetContent(m.renderComparison(msg.Comparison))
	m.diff.GotoTop()
	return m, nil
}

// =============================================================================
// SESSION STATE
// =============================================================================

// sync rereads the session and pulls in text the session changed itself.
func (m *Model) sync() {
	m.refresh()
	if m.snap.Text != m.lastSynced {
		m.setEditorText(m.snap.Text)
	}
}

func (m *Model) refresh() {
	m.snap = m.sess.Snapshot()
	if m.selected >= len(m.snap.Visible) {
		m.selected = len(m.snap.Visible) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.renderPreview()
}

// setEditorText replaces the text area contents, keeping the cursor on
// the line it was on where possible.
func (m *Model) setEditorText(text string) {
	row := m.textarea.Line()
	m.textarea.SetValue(text)
	for i := 0; m.textarea.Line() > row && i < 10000; i++ {
		m.textarea.CursorUp()
	}
	m.textarea.CursorEnd()
	m.lastSynced = text
}

func (m *Model) setInfo(s string) {
	m.flash = s
	m.flashIsError = false
}

func (m *Model) setError(s string) {
	m.flash = s
	m.flashIsError = true
}

// fileData is what ctrl+s writes: the plain text, or clean HTML for .html
// files. Highlights are never written.
func (m Model) fileData() []byte {
	text := m.sess.Text()
	if m.html {
		return []byte(document.FromText(text).HTML())
	}
	return []byte(text)
}

func (m Model) selectedAlert() (alert.Alert, bool) {
	if m.selected < 0 || m.selected >= len(m.snap.Visible) {
		return alert.Alert{}, false
	}
	return m.snap.Visible[m.selected].Alert, true
}

func countLabel(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
