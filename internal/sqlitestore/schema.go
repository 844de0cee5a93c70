// Package sqlitestore persists the contact book in a SQLite database.
package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/rolodex/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS contacts (
	id    INTEGER PRIMARY KEY,
	name  TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS meetings (
	id     INTEGER PRIMARY KEY,
	status TEXT NOT NULL CHECK (status IN ('future', 'past')),
	date   DATETIME NOT NULL,
	notes  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS participants (
	meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	contact_id INTEGER NOT NULL REFERENCES contacts(id),
	UNIQUE(meeting_id, contact_id)
);

CREATE INDEX IF NOT EXISTS idx_participants_meeting ON participants(meeting_id);
`

// DB is a storage.Provider backed by SQLite.
type DB struct {
	conn *sql.DB
}

var _ storage.Provider = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
