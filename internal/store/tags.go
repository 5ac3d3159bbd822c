package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// CreateTag inserts t. ID and timestamp are assigned in place.
func (db *DB) CreateTag(ctx context.Context, t *models.Tag) error {
	t.ID = uuid.NewString()
	t.CreatedAt = db.now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO tags (id, team_id, name, parent_id, created_at) VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.TeamID, t.Name, nullString(t.ParentID), t.CreatedAt)
	return mapErr("create tag", err)
}

// GetTag returns one tag of the team.
func (db *DB) GetTag(ctx context.Context, teamID, id string) (*models.Tag, error) {
	var (
		t      models.Tag
		parent sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, team_id, name, parent_id, created_at FROM tags WHERE team_id = ? AND id = ?
	`, teamID, id).Scan(&t.ID, &t.TeamID, &t.Name, &parent, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(fmt.Sprintf("tag %s", id), err)
	}
	t.ParentID = strPtr(parent)
	return &t, nil
}

// ListTags returns every tag of the team in creation order.
func (db *DB) ListTags(ctx context.Context, teamID string) ([]models.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, team_id, name, parent_id, created_at FROM tags
		WHERE team_id = ? ORDER BY created_at, rowid
	`, teamID)
	if err != nil {
		return nil, mapErr("list tags", err)
	}
	defer rows.Close()

	out := []models.Tag{}
	for rows.Next() {
		var (
			t      models.Tag
			parent sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.TeamID, &t.Name, &parent, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.ParentID = strPtr(parent)
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTag renames or re-parents a tag.
func (db *DB) UpdateTag(ctx context.Context, t *models.Tag) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE tags SET name = ?, parent_id = ? WHERE team_id = ? AND id = ?`,
		t.Name, nullString(t.ParentID), t.TeamID, t.ID)
	if err != nil {
		return mapErr("update tag", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tag %s: %w", t.ID, apperr.ErrNotFound)
	}
	return nil
}

// DeleteTag splices a tag out of the hierarchy: its children move to its
// parent and its assignments are removed. It returns the ids of the assets
// that carried the tag.
func (db *DB) DeleteTag(ctx context.Context, teamID, id string) ([]string, error) {
	var affected []string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var parent sql.NullString
		if err := tx.QueryRowContext(ctx,
			`SELECT parent_id FROM tags WHERE team_id = ? AND id = ?`, teamID, id).
			Scan(&parent); err != nil {
			return mapErr(fmt.Sprintf("tag %s", id), err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT asset_id FROM asset_tags WHERE tag_id = ?
			UNION
			SELECT asset_id FROM asset_value_tags WHERE tag_id = ?
		`, id, id)
		if err != nil {
			return mapErr("tagged assets", err)
		}
		for rows.Next() {
			var a string
			if err := rows.Scan(&a); err != nil {
				rows.Close()
				return err
			}
			affected = append(affected, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, q := range []string{
			`DELETE FROM asset_tags WHERE tag_id = ?`,
			`DELETE FROM asset_value_tags WHERE tag_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return mapErr("delete tag assignments", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE custom_fields SET parent_tag_id = ? WHERE parent_tag_id = ?`, parent, id); err != nil {
			return mapErr("re-root tag fields", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET parent_id = ? WHERE team_id = ? AND parent_id = ?`, parent, teamID, id); err != nil {
			return mapErr("re-parent tags", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE team_id = ? AND id = ?`, teamID, id); err != nil {
			return mapErr("delete tag", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}
