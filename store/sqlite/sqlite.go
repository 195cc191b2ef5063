// Package sqlite provides a durable core.Store backed by SQLite via the
// CGO-free modernc driver. A single file (or :memory:) holds threads, agents
// and messages; message ordering follows creation time with the rowid as a
// tiebreaker for same-instant writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	owner         TEXT NOT NULL DEFAULT '',
	locked        INTEGER NOT NULL DEFAULT 0,
	enable_agents INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	id                        TEXT PRIMARY KEY,
	thread_id                 TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
	type_id                   TEXT NOT NULL,
	pseudonym                 TEXT NOT NULL,
	last_active_message_count INTEGER NOT NULL DEFAULT 0,
	position                  INTEGER NOT NULL DEFAULT 0,
	created_at                TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS agents_thread ON agents(thread_id, position);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	thread_id  TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
	body       TEXT NOT NULL,
	owner      TEXT NOT NULL DEFAULT '',
	pseudonym  TEXT NOT NULL DEFAULT '',
	from_agent INTEGER NOT NULL DEFAULT 0,
	visible    INTEGER NOT NULL DEFAULT 1,
	count      INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_thread_created ON messages(thread_id, created_at);
`

// Open opens (creating if necessary) the database at path and applies the
// connection pragmas and schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}
