// Package store is the SQLite-backed content store: sources, notes,
// proposals, feedback and Mochi sync links.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	user_id       INTEGER PRIMARY KEY,
	deck_name     TEXT NOT NULL DEFAULT '',
	mochi_api_key TEXT NOT NULL DEFAULT '',
	mochi_deck_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sources (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	source_type  TEXT NOT NULL,
	source_label TEXT NOT NULL DEFAULT '',
	content_text TEXT NOT NULL DEFAULT '',
	file_path    TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	meta         TEXT NOT NULL DEFAULT '{}',
	status       TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending','processed','ignored')),
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	type       TEXT NOT NULL CHECK(type IN ('basic','cloze')),
	front      TEXT NOT NULL DEFAULT '',
	back       TEXT NOT NULL DEFAULT '',
	cloze      TEXT NOT NULL DEFAULT '',
	extra      TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	source_id  INTEGER NOT NULL DEFAULT 0,
	origin     TEXT NOT NULL DEFAULT 'unknown',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS note_proposals (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id            INTEGER NOT NULL,
	source_id          INTEGER NOT NULL DEFAULT 0,
	parent_proposal_id INTEGER NOT NULL DEFAULT 0,
	root_proposal_id   INTEGER NOT NULL DEFAULT 0,
	revision_index     INTEGER NOT NULL DEFAULT 0,
	feedback_id        INTEGER NOT NULL DEFAULT 0,
	type               TEXT NOT NULL CHECK(type IN ('basic','cloze')),
	front              TEXT NOT NULL DEFAULT '',
	back               TEXT NOT NULL DEFAULT '',
	cloze              TEXT NOT NULL DEFAULT '',
	extra              TEXT NOT NULL DEFAULT '',
	tags               TEXT NOT NULL DEFAULT '[]',
	outbound_handle    INTEGER NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending','approved','rejected','expired')),
	note_id            INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	decided_at         DATETIME
);

CREATE TABLE IF NOT EXISTS proposal_feedback (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id            INTEGER NOT NULL,
	source_id          INTEGER NOT NULL DEFAULT 0,
	target_proposal_id INTEGER NOT NULL DEFAULT 0,
	feedback_text      TEXT NOT NULL DEFAULT '',
	requested_lang     TEXT NOT NULL DEFAULT '',
	outbound_handle    INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mochi_sync (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id           INTEGER NOT NULL,
	note_id           INTEGER NOT NULL,
	mochi_card_id     TEXT NOT NULL,
	mochi_deck_id     TEXT NOT NULL DEFAULT '',
	local_hash        TEXT NOT NULL DEFAULT '',
	remote_hash       TEXT NOT NULL DEFAULT '',
	remote_updated_at TEXT NOT NULL DEFAULT '',
	last_synced_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, note_id),
	UNIQUE(user_id, mochi_card_id)
);

CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);
CREATE INDEX IF NOT EXISTS idx_sources_user_status_id ON sources(user_id, status, id);
CREATE INDEX IF NOT EXISTS idx_note_proposals_user_status_id ON note_proposals(user_id, status, id);
CREATE INDEX IF NOT EXISTS idx_note_proposals_user_handle ON note_proposals(user_id, outbound_handle);
CREATE INDEX IF NOT EXISTS idx_note_proposals_user_root ON note_proposals(user_id, root_proposal_id, id);
CREATE INDEX IF NOT EXISTS idx_note_proposals_user_source ON note_proposals(user_id, source_id, id);
CREATE INDEX IF NOT EXISTS idx_proposal_feedback_user_source_id ON proposal_feedback(user_id, source_id, id);
CREATE INDEX IF NOT EXISTS idx_proposal_feedback_user_target_id ON proposal_feedback(user_id, target_proposal_id, id);
CREATE INDEX IF NOT EXISTS idx_mochi_sync_user_note ON mochi_sync(user_id, note_id);
CREATE INDEX IF NOT EXISTS idx_mochi_sync_user_card ON mochi_sync(user_id, mochi_card_id);
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB with content-store operations. A DB returned to an
// InTx callback is bound to that transaction.
type DB struct {
	conn *sql.DB
	q    querier
	inTx bool
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
	return &DB{conn: conn, q: conn}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection. It is a no-op on a
// transaction-bound DB.
func (db *DB) Close() error {
	if db.inTx {
		return nil
	}
	return db.conn.Close()
}

// InTx runs fn inside a single transaction. Either every write made through
// the DB handed to fn commits, or none does. Nested calls reuse the
// outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(Repository) error) error {
	if db.inTx {
		return fn(db)
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := fn(&DB{conn: db.conn, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
