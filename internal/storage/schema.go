// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// SchemaVersion tracks the database schema version for migrations.
const SchemaVersion = 1

// Schema creates the draft tables.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- One row per saved version of a project's text
CREATE TABLE IF NOT EXISTS drafts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project TEXT NOT NULL,
    content TEXT NOT NULL,
    words INTEGER NOT NULL,
    saved_at INTEGER NOT NULL   -- Unix nanoseconds
);

CREATE INDEX IF NOT EXISTS idx_drafts_project ON drafts(project, id);

-- Latest alert collection per project, msgpack encoded
CREATE TABLE IF NOT EXISTS alert_snapshots (
    project TEXT PRIMARY KEY,
    alerts BLOB NOT NULL,
    count INTEGER NOT NULL,
    saved_at INTEGER NOT NULL
) WITHOUT ROWID;
`

// InitMetadata records the schema version.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
