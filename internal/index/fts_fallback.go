//go:build !sqlite_fts5

package index

import "database/sql"

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE fallback on documents.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error {
	// Title and body are already stored in the documents table.
	return nil
}

func ftsDelete(_ *sql.Tx, _, _ string) {}

// textQuery is the full-text part of a search: an optional join, a WHERE
// term, the snippet column and the result order.
type textQuery struct {
	join    string
	where   string
	args    []any
	snippet string
	order   string
}

// textSearch matches query with LIKE against title and body.
func textSearch(query string) textQuery {
	q := textQuery{snippet: "substr(d.body, 1, 200)", order: "d.title, d.id"}
	if query == "" {
		return q
	}
	like := "%" + query + "%"
	q.where = "(d.title LIKE ? OR d.body LIKE ?)"
	q.args = []any{like, like}
	return q
}
