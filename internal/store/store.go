// Package store persists teams, asset types, assets and tags in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/schema"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS teams (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS team_members (
	team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	role    TEXT NOT NULL DEFAULT 'member',
	PRIMARY KEY (team_id, user_id)
);

CREATE TABLE IF NOT EXISTS asset_types (
	id         TEXT PRIMARY KEY,
	team_id    TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	parent_id  TEXT REFERENCES asset_types(id),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS custom_fields (
	id             TEXT PRIMARY KEY,
	asset_type_id  TEXT NOT NULL REFERENCES asset_types(id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	slug           TEXT NOT NULL,
	field_type     TEXT NOT NULL,
	input_required INTEGER NOT NULL DEFAULT 0,
	show_in_table  INTEGER NOT NULL DEFAULT 0,
	input_min      REAL,
	input_max      REAL,
	currency       TEXT,
	parent_tag_id  TEXT,
	position       INTEGER NOT NULL DEFAULT 0,
	UNIQUE(asset_type_id, slug)
);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	team_id    TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	parent_id  TEXT REFERENCES tags(id),
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
	id            TEXT PRIMARY KEY,
	team_id       TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	asset_type_id TEXT NOT NULL REFERENCES asset_types(id),
	name          TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS asset_values (
	asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
	field_id TEXT NOT NULL REFERENCES custom_fields(id),
	value    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (asset_id, field_id)
);

CREATE TABLE IF NOT EXISTS asset_value_tags (
	asset_id TEXT NOT NULL,
	field_id TEXT NOT NULL,
	tag_id   TEXT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (asset_id, field_id, tag_id),
	FOREIGN KEY (asset_id, field_id) REFERENCES asset_values(asset_id, field_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS asset_tags (
	asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
	tag_id   TEXT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (asset_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_asset_types_team ON asset_types(team_id);
CREATE INDEX IF NOT EXISTS idx_custom_fields_type ON custom_fields(asset_type_id);
CREATE INDEX IF NOT EXISTS idx_assets_type ON assets(team_id, asset_type_id);
CREATE INDEX IF NOT EXISTS idx_tags_team ON tags(team_id);
`

// DB is the relational store.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
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
	return &DB{conn: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

var _ schema.Source = (*DB)(nil)

// withTx runs fn in a transaction, committing when fn returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// mapErr translates driver errors to apperr sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: %s: %w", op, apperr.ErrNotFound)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("store: %s: %w", op, apperr.ErrAlreadyExists)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("store: %s: %w", op, apperr.ErrConflict)
		}
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// inClause returns "(?, ?, ...)" for n placeholders.
func inClause(n int) string {
	b := make([]byte, 0, 2+3*n)
	b = append(b, '(')
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(append(b, ')'))
}
