//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			team_id UNINDEXED,
			id UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, teamID, id, title, body string) error {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE team_id = ? AND id = ?`, teamID, id)
	_, err := tx.Exec(`INSERT INTO documents_fts (team_id, id, title, body) VALUES (?, ?, ?, ?)`,
		teamID, id, title, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, teamID, id string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE team_id = ? AND id = ?`, teamID, id)
}

// textQuery is the full-text part of a search: an optional join, a WHERE
// term, the snippet column and the result order.
type textQuery struct {
	join    string
	where   string
	args    []any
	snippet string
	order   string
}

// textSearch matches query with FTS5, ranking hits and marking snippets.
func textSearch(query string) textQuery {
	if query == "" {
		return textQuery{snippet: "substr(d.body, 1, 200)", order: "d.title, d.id"}
	}
	return textQuery{
		join:    "JOIN documents_fts f ON f.team_id = d.team_id AND f.id = d.id",
		where:   "documents_fts MATCH ?",
		args:    []any{query},
		snippet: "snippet(documents_fts, 3, '<b>', '</b>', '...', 64)",
		order:   "rank",
	}
}
