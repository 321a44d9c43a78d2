// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrClosed        = errors.New("store is closed")
	ErrNoProject     = errors.New("project id is required")
)

// =============================================================================
// TYPES
// =============================================================================

// Draft is one saved version of a project's text.
type Draft struct {
	ID      int64     `json:"id" yaml:"id"`
	Project string    `json:"project" yaml:"project"`
	Content string    `json:"content" yaml:"content"`
	Words   int       `json:"words" yaml:"words"`
	SavedAt time.Time `json:"saved_at" yaml:"saved_at"`
}

// DraftMeta describes a draft without its content.
type DraftMeta struct {
	ID      int64     `json:"id" yaml:"id"`
	Project string    `json:"project" yaml:"project"`
	Words   int       `json:"words" yaml:"words"`
	Bytes   int       `json:"bytes" yaml:"bytes"`
	SavedAt time.Time `json:"saved_at" yaml:"saved_at"`
	Preview string    `json:"preview" yaml:"preview"` // first line, truncated
}

// ProjectMeta summarizes one project's drafts.
type ProjectMeta struct {
	Project   string    `json:"project" yaml:"project"`
	Drafts    int       `json:"drafts" yaml:"drafts"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Alerts    int       `json:"alerts" yaml:"alerts"`
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds store configuration.
type Config struct {
	// Path is where to store the SQLite database (":memory:" for tests)
	Path string

	// MaxDrafts is how many versions to keep per project (0 = unlimited)
	MaxDrafts int
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	path := "drafts.db"
	if home, err := os.UserHomeDir(); err == nil {
		path = filepath.Join(home, ".inkwell", "drafts.db")
	}
	return &Config{
		Path:      path,
		MaxDrafts: 50,
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store is a SQLite-backed draft store. It is safe for concurrent use.
type Store struct {
	db        *sql.DB
	maxDrafts int
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Open opens (and creates if needed) the database at config.Path.
func Open(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time; one connection also keeps
	// an in-memory database alive for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, maxDrafts: config.MaxDrafts, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) check(project string) error {
	if s.closed {
		return ErrClosed
	}
	if strings.TrimSpace(project) == "" {
		return ErrNoProject
	}
	return nil
}

// =============================================================================
// DRAFTS
// =============================================================================

// SaveDraft stores content as the newest version of project. Saving the
// same content twice in a row stores it once.
func (s *Store) SaveDraft(ctx context.Context, project, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(project); err != nil {
		return err
	}

	var latest string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM drafts WHERE project = ? ORDER BY id DESC LIMIT 1`, project).Scan(&latest)
	switch {
	case err == nil && latest == content:
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to read latest draft: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO drafts (project, content, words, saved_at) VALUES (?, ?, ?, ?)`,
		project, content, len(strings.Fields(content)), s.now().UnixNano()); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	if s.maxDrafts > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM drafts WHERE project = ? AND id NOT IN (
				SELECT id FROM drafts WHERE project = ? ORDER BY id DESC LIMIT ?
			)`, project, project, s.maxDrafts); err != nil {
			return fmt.Errorf("failed to prune drafts: %w", err)
		}
	}
	return tx.Commit()
}

// LatestDraft returns the newest version of project. ok is false when the
// project has no drafts.
func (s *Store) LatestDraft(ctx context.Context, project string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(project); err != nil {
		return "", false, err
	}

	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM drafts WHERE project = ? ORDER BY id DESC LIMIT 1`, project).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read latest draft: %w", err)
	}
	return content, true, nil
}

// Draft loads one version by id.
func (s *Store) Draft(ctx context.Context, id int64) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var d Draft
	var savedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project, content, words, saved_at FROM drafts WHERE id = ?`, id).
		Scan(&d.ID, &d.Project, &d.Content, &d.Words, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	d.SavedAt = time.Unix(0, savedAt)
	return &d, nil
}

// History lists the versions of project, newest first. limit <= 0 lists
// all of them.
func (s *Store) History(ctx context.Context, project string, limit int) ([]DraftMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(project); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, content, words, saved_at FROM drafts
		WHERE project = ? ORDER BY id DESC LIMIT ?`, project, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DraftMeta
	for rows.Next() {
		var m DraftMeta
		var content string
		var savedAt int64
		if err := rows.Scan(&m.ID, &m.Project, &content, &m.Words, &savedAt); err != nil {
			return nil, err
		}
		m.Bytes = len(content)
		m.SavedAt = time.Unix(0, savedAt)
		m.Preview = preview(content)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Projects lists every project with drafts, most recently saved first.
func (s *Store) Projects(ctx context.Context) ([]ProjectMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.project, COUNT(*), MAX(d.saved_at), COALESCE(a.count, 0)
		FROM drafts d LEFT JOIN alert_snapshots a ON a.project = d.project
		GROUP BY d.project
		ORDER BY MAX(d.saved_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectMeta
	for rows.Next() {
		var m ProjectMeta
		var updated int64
		if err := rows.Scan(&m.Project, &m.Drafts, &updated, &m.Alerts); err != nil {
			return nil, err
		}
		m.UpdatedAt = time.Unix(0, updated)
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteProject removes every draft and the alert snapshot of project.
func (s *Store) DeleteProject(ctx context.Context, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(project); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE project = ?`, project); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM alert_snapshots WHERE project = ?`, project); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// ALERT SNAPSHOTS
// =============================================================================

// SaveAlerts replaces the alert snapshot of project.
func (s *Store) SaveAlerts(ctx context.Context, project string, alerts []alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(project); err != nil {
		return err
	}

	data, err := msgpack.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("failed to encode alerts: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alert_snapshots (project, alerts, count, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(project) DO UPDATE SET alerts = excluded.alerts, count = excluded.count, saved_at = excluded.saved_at`,
		project, data, len(alerts), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save alerts: %w", err)
	}
	return nil
}

// LatestAlerts returns the alert snapshot of project, or nil.
func (s *Store) LatestAlerts(ctx context.Context, project string) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(project); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT alerts FROM alert_snapshots WHERE project = ?`, project).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var alerts []alert.Alert
	if err := msgpack.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}
	return alerts, nil
}

// preview returns the first non-blank line of content, truncated.
func preview(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return util.TruncateRunes(line, 80)
		}
	}
	return ""
}
