// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/inkwell-studio/inkwell/internal/compare"
	"github.com/inkwell-studio/inkwell/internal/session"
	"github.com/inkwell-studio/inkwell/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// sessionEventMsg reports that the session changed on its own: a timer
// fired, a status changed or a ghost continuation arrived.
type sessionEventMsg struct{}

// AnalyzeDoneMsg carries the result of an analyze request.
type AnalyzeDoneMsg struct {
	Analysis *session.Analysis
	Err      error
}

// FixDoneMsg carries the result of a fix request. Suggestion is nil for
// spelling fixes, which apply directly.
type FixDoneMsg struct {
	Index      int
	Suggestion *session.Suggestion
	Err        error
}

// GenerateDoneMsg carries a full-document rewrite.
type GenerateDoneMsg struct {
	Comparison *compare.Comparison
	Err        error
}

// FileSavedMsg reports the result of writing the file.
type FileSavedMsg struct {
	Path string
	Err  error
}

// tickMsg drives the analyzing spinner.
type tickMsg time.Time

// =============================================================================
// COMMANDS
// =============================================================================

// requestTimeout bounds each backend call started from the editor.
const requestTimeout = 60 * time.Second

func analyzeCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		a, err := s.Analyze(ctx)
		return AnalyzeDoneMsg{Analysis: a, Err: err}
	}
}

func fixCmd(s *session.Session, index int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		sg, err := s.RequestFix(ctx, index)
		return FixDoneMsg{Index: index, Suggestion: sg, Err: err}
	}
}

func generateCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		cmp, err := s.GenerateSuggestions(ctx)
		return GenerateDoneMsg{Comparison: cmp, Err: err}
	}
}

func saveFileCmd(path string, data []byte) tea.Cmd {
	return func() tea.Msg {
		return FileSavedMsg{Path: path, Err: util.ReplaceFile(path, data, 0644)}
	}
}

// listenCmd waits for the next session event.
func listenCmd(events <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return sessionEventMsg{}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
