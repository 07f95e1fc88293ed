// Package store provides the SQLite-backed relational store for notes,
// topics, chats, and user summaries. Every query is scoped by the owning
// user identity; an ownership mismatch reads as not found.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	owner       TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	start_ts    DATETIME,
	end_ts      DATETIME,
	granularity TEXT,
	metadata    TEXT NOT NULL DEFAULT '{}',
	attachments TEXT NOT NULL DEFAULT '[]',
	topic_id    INTEGER,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner);
CREATE INDEX IF NOT EXISTS idx_notes_topic ON notes(owner, topic_id);

CREATE TABLE IF NOT EXISTS topics (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	owner TEXT NOT NULL,
	name  TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	UNIQUE(owner, name)
);

CREATE TABLE IF NOT EXISTS chats (
	id         TEXT NOT NULL,
	owner      TEXT NOT NULL,
	title      TEXT,
	messages   TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY(owner, id)
);

CREATE TABLE IF NOT EXISTS user_summaries (
	owner      TEXT PRIMARY KEY,
	content    TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
