// Package store persists the history of read sessions and the records each
// successful read produced.
package store

import (
	"database/sql"

	"github.com/hazyhaar/panelread/dbopen"
)

// Schema contains the DDL for the read history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS read_sessions (
    id           TEXT PRIMARY KEY,
    panel        TEXT NOT NULL,
    kind         TEXT NOT NULL,
    page_url     TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL,
    error_kind   TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    header       TEXT NOT NULL DEFAULT '[]',
    row_count    INTEGER NOT NULL DEFAULT 0,
    ragged       INTEGER NOT NULL DEFAULT 0,
    content_hash TEXT NOT NULL DEFAULT '',
    started_at   INTEGER NOT NULL,
    duration_ms  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_panel ON read_sessions(panel, started_at DESC);

CREATE TABLE IF NOT EXISTS read_records (
    session_id TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    fields     TEXT NOT NULL,
    PRIMARY KEY (session_id, seq),
    FOREIGN KEY (session_id) REFERENCES read_sessions(id) ON DELETE CASCADE
);
`

// Store is the read history database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the history database at path and applies the
// schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
