package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Document is the flattened, searchable projection of one asset. Values maps
// a key (field slug, assetTypeName, tags, ...) to its discrete values;
// Numbers carries numeric values used for facet stats.
type Document struct {
	ID        string
	Title     string
	Body      string
	Values    map[string][]string
	Numbers   map[string]float64
	UpdatedAt time.Time
}

// SearchRequest is one search query.
type SearchRequest struct {
	Query  string   `json:"q"`
	Filter string   `json:"filter"`
	Facets []string `json:"facets"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// Hit is one search result.
type Hit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Stats summarizes the numeric values of one key over the matching documents.
type Stats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SearchResponse carries the hits of a query together with the facet
// distribution (key → value → document count) and numeric stats of the
// requested facets over all matching documents.
type SearchResponse struct {
	Hits              []Hit                     `json:"hits"`
	Total             int                       `json:"total"`
	FacetDistribution map[string]map[string]int `json:"facetDistribution"`
	FacetStats        map[string]Stats          `json:"facetStats"`
}

// AllFacets requests the distribution of every key.
const AllFacets = "*"

// UpsertDocument inserts or replaces a document, its values and its FTS
// entry within a transaction.
func (db *DB) UpsertDocument(ctx context.Context, teamID string, doc Document) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (team_id, id, title, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(team_id, id) DO UPDATE SET
			title      = excluded.title,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, teamID, doc.ID, doc.Title, doc.Body, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, teamID, doc.ID, doc.Title, doc.Body); err != nil {
		return err
	}

	// Replace values: delete old then bulk insert.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_values WHERE team_id = ? AND doc_id = ?`, teamID, doc.ID); err != nil {
		return fmt.Errorf("index: clear values: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_values (team_id, doc_id, key, value, num) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare value insert: %w", err)
	}
	defer stmt.Close()
	for _, key := range sortedKeys(doc.Values) {
		for _, v := range doc.Values[key] {
			if _, err := stmt.ExecContext(ctx, teamID, doc.ID, key, v, nil); err != nil {
				return fmt.Errorf("index: insert value: %w", err)
			}
		}
	}
	for key, n := range doc.Numbers {
		if _, err := stmt.ExecContext(ctx, teamID, doc.ID, "#"+key, "", n); err != nil {
			return fmt.Errorf("index: insert number: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its values and its FTS entry.
func (db *DB) DeleteDocument(ctx context.Context, teamID, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, teamID, id)
	_, _ = tx.ExecContext(ctx, `DELETE FROM document_values WHERE team_id = ? AND doc_id = ?`, teamID, id)
	_, _ = tx.ExecContext(ctx, `DELETE FROM documents WHERE team_id = ? AND id = ?`, teamID, id)

	return tx.Commit()
}

// DocumentIDs returns the id of every indexed document of the team.
func (db *DB) DocumentIDs(ctx context.Context, teamID string) (map[string]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM documents WHERE team_id = ?`, teamID)
	if err != nil {
		return nil, fmt.Errorf("index: document ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// Search runs req against the team's documents. An expression that does not
// parse fails with apperr.ErrMalformedExpression.
func (db *DB) Search(ctx context.Context, teamID string, req SearchRequest) (*SearchResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	filter, err := parseFilter(req.Filter)
	if err != nil {
		return nil, err
	}
	text := textSearch(strings.TrimSpace(req.Query))

	where := []string{"d.team_id = ?"}
	args := []any{teamID}
	if text.where != "" {
		where = append(where, text.where)
		args = append(args, text.args...)
	}
	if filter.sql != "" {
		where = append(where, filter.sql)
		args = append(args, filter.args...)
	}
	from := "documents d " + text.join
	cond := strings.Join(where, " AND ")

	resp := &SearchResponse{
		Hits:              []Hit{},
		FacetDistribution: map[string]map[string]int{},
		FacetStats:        map[string]Stats{},
	}

	if err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM `+from+` WHERE `+cond, args...).Scan(&resp.Total); err != nil {
		return nil, fmt.Errorf("index: count: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT d.id, d.title, `+text.snippet+` FROM `+from+` WHERE `+cond+
			` ORDER BY `+text.order+` LIMIT ? OFFSET ?`,
		append(append([]any{}, args...), req.Limit, req.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Title, &h.Snippet); err != nil {
			return nil, err
		}
		resp.Hits = append(resp.Hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(req.Facets) > 0 {
		if err := db.facets(ctx, from, cond, args, req.Facets, resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// facets fills the distribution and stats of the requested keys over the
// documents matching cond.
func (db *DB) facets(ctx context.Context, from, cond string, args []any, keys []string, resp *SearchResponse) error {
	all := false
	for _, k := range keys {
		if k == AllFacets {
			all = true
		}
	}
	matching := `SELECT d.id FROM ` + from + ` WHERE ` + cond

	keyFilter, keyArgs := "", []any{}
	if !all {
		ph := make([]string, 0, len(keys)*2)
		for _, k := range keys {
			ph = append(ph, "?", "?")
			keyArgs = append(keyArgs, k, "#"+k)
		}
		keyFilter = ` AND v.key IN (` + strings.Join(ph, ", ") + `)`
	}

	// Numeric values are stored under "#"+key with an empty value, so they
	// group into one row per key.
	q := `SELECT v.key, v.value, count(DISTINCT v.doc_id), min(v.num), max(v.num)
		FROM document_values v
		WHERE v.team_id = ? AND v.doc_id IN (` + matching + `)` + keyFilter + `
		GROUP BY v.key, v.value`
	qargs := append([]any{args[0]}, args...)
	qargs = append(qargs, keyArgs...)

	rows, err := db.conn.QueryContext(ctx, q, qargs...)
	if err != nil {
		return fmt.Errorf("index: facets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key, value string
			count      int
			lo, hi     *float64
		)
		if err := rows.Scan(&key, &value, &count, &lo, &hi); err != nil {
			return err
		}
		if name, ok := strings.CutPrefix(key, "#"); ok {
			if lo != nil && hi != nil {
				resp.FacetStats[name] = Stats{Min: *lo, Max: *hi}
			}
			continue
		}
		m, ok := resp.FacetDistribution[key]
		if !ok {
			m = map[string]int{}
			resp.FacetDistribution[key] = m
		}
		m[value] = count
	}
	return rows.Err()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
