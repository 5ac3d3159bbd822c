// Package index is the faceted search backend: a SQLite document store with
// optional FTS5 full-text search, filter expressions and facet counts.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	team_id    TEXT NOT NULL,
	id         TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (team_id, id)
);

CREATE TABLE IF NOT EXISTS document_values (
	team_id TEXT NOT NULL,
	doc_id  TEXT NOT NULL,
	key     TEXT NOT NULL,
	value   TEXT NOT NULL,
	num     REAL,
	FOREIGN KEY (team_id, doc_id) REFERENCES documents(team_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_document_values_doc ON document_values(team_id, doc_id);
CREATE INDEX IF NOT EXISTS idx_document_values_key ON document_values(team_id, key, value);
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
