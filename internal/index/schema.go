// Package index provides a SQLite-backed index of works with optional FTS5
// full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS works (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	checksum     TEXT NOT NULL DEFAULT '',
	components   INTEGER NOT NULL DEFAULT 0,
	is_template  INTEGER NOT NULL DEFAULT 0,
	body         TEXT NOT NULL DEFAULT '',
	published_at DATETIME,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS asset_refs (
	work_id TEXT NOT NULL,
	src     TEXT NOT NULL,
	UNIQUE(work_id, src)
);

CREATE INDEX IF NOT EXISTS idx_asset_refs_src ON asset_refs(src);
CREATE INDEX IF NOT EXISTS idx_works_updated ON works(updated_at);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
