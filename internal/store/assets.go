package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// CreateAsset inserts a with its values and tags. ID and timestamps are
// assigned in place.
func (db *DB) CreateAsset(ctx context.Context, a *models.Asset) error {
	now := db.now()
	a.ID = uuid.NewString()
	a.CreatedAt, a.UpdatedAt = now, now
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO assets (id, team_id, asset_type_id, name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.ID, a.TeamID, a.AssetTypeID, a.Name, now, now); err != nil {
			return mapErr("create asset", err)
		}
		return writeAssetChildren(ctx, tx, a)
	})
}

// UpdateAsset replaces name, type, values and tags of an existing asset.
func (db *DB) UpdateAsset(ctx context.Context, a *models.Asset) error {
	a.UpdatedAt = db.now()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE assets SET name = ?, asset_type_id = ?, updated_at = ?
			WHERE team_id = ? AND id = ?
		`, a.Name, a.AssetTypeID, a.UpdatedAt, a.TeamID, a.ID)
		if err != nil {
			return mapErr("update asset", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("asset %s: %w", a.ID, apperr.ErrNotFound)
		}
		if err := tx.QueryRowContext(ctx, `SELECT created_at FROM assets WHERE id = ?`, a.ID).Scan(&a.CreatedAt); err != nil {
			return mapErr("reload asset", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM asset_values WHERE asset_id = ?`, a.ID); err != nil {
			return mapErr("clear values", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM asset_tags WHERE asset_id = ?`, a.ID); err != nil {
			return mapErr("clear tags", err)
		}
		return writeAssetChildren(ctx, tx, a)
	})
}

func writeAssetChildren(ctx context.Context, tx *sql.Tx, a *models.Asset) error {
	for _, v := range a.Values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO asset_values (asset_id, field_id, value) VALUES (?, ?, ?)`,
			a.ID, v.FieldID, v.Value); err != nil {
			return mapErr("insert value", err)
		}
		for _, tagID := range v.TagIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO asset_value_tags (asset_id, field_id, tag_id) VALUES (?, ?, ?)`,
				a.ID, v.FieldID, tagID); err != nil {
				return mapErr("insert value tag", err)
			}
		}
	}
	for _, tagID := range a.TagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO asset_tags (asset_id, tag_id) VALUES (?, ?)`, a.ID, tagID); err != nil {
			return mapErr("insert tag", err)
		}
	}
	return nil
}

// GetAsset returns one asset of the team.
func (db *DB) GetAsset(ctx context.Context, teamID, id string) (*models.Asset, error) {
	out, err := db.queryAssets(ctx, `WHERE a.team_id = ? AND a.id = ?`, teamID, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("asset %s: %w", id, apperr.ErrNotFound)
	}
	return &out[0], nil
}

// ListAssets returns the team's assets, restricted to the given asset types
// when assetTypeIDs is non-empty.
func (db *DB) ListAssets(ctx context.Context, teamID string, assetTypeIDs []string) ([]models.Asset, error) {
	if len(assetTypeIDs) == 0 {
		return db.queryAssets(ctx, `WHERE a.team_id = ?`, teamID)
	}
	args := make([]any, 0, len(assetTypeIDs)+1)
	args = append(args, teamID)
	for _, id := range assetTypeIDs {
		args = append(args, id)
	}
	return db.queryAssets(ctx, `WHERE a.team_id = ? AND a.asset_type_id IN `+inClause(len(assetTypeIDs)), args...)
}

// DeleteAsset removes an asset with its values and tag assignments.
func (db *DB) DeleteAsset(ctx context.Context, teamID, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM assets WHERE team_id = ? AND id = ?`, teamID, id)
	if err != nil {
		return mapErr("delete asset", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// queryAssets loads assets matching where (over alias a) together with
// their values and tags.
func (db *DB) queryAssets(ctx context.Context, where string, args ...any) ([]models.Asset, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT a.id, a.team_id, a.asset_type_id, a.name, a.created_at, a.updated_at
		FROM assets a `+where+`
		ORDER BY a.created_at, a.rowid
	`, args...)
	if err != nil {
		return nil, mapErr("list assets", err)
	}
	defer rows.Close()

	out := []models.Asset{}
	pos := map[string]int{}
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.TeamID, &a.AssetTypeID, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Values = []models.FieldValue{}
		a.TagIDs = []string{}
		pos[a.ID] = len(out)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	// Values, ordered like the field definitions.
	vrows, err := db.conn.QueryContext(ctx, `
		SELECT v.asset_id, v.field_id, v.value
		FROM asset_values v
		JOIN assets a ON a.id = v.asset_id
		JOIN custom_fields f ON f.id = v.field_id
		`+where+`
		ORDER BY v.asset_id, f.position
	`, args...)
	if err != nil {
		return nil, mapErr("list values", err)
	}
	defer vrows.Close()
	valuePos := map[[2]string]int{}
	for vrows.Next() {
		var assetID string
		var v models.FieldValue
		if err := vrows.Scan(&assetID, &v.FieldID, &v.Value); err != nil {
			return nil, err
		}
		a := &out[pos[assetID]]
		valuePos[[2]string{assetID, v.FieldID}] = len(a.Values)
		a.Values = append(a.Values, v)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	trows, err := db.conn.QueryContext(ctx, `
		SELECT t.asset_id, t.field_id, t.tag_id
		FROM asset_value_tags t JOIN assets a ON a.id = t.asset_id
		`+where+`
		ORDER BY t.asset_id, t.field_id, t.tag_id
	`, args...)
	if err != nil {
		return nil, mapErr("list value tags", err)
	}
	defer trows.Close()
	for trows.Next() {
		var assetID, fieldID, tagID string
		if err := trows.Scan(&assetID, &fieldID, &tagID); err != nil {
			return nil, err
		}
		if i, ok := valuePos[[2]string{assetID, fieldID}]; ok {
			a := &out[pos[assetID]]
			a.Values[i].TagIDs = append(a.Values[i].TagIDs, tagID)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, err
	}

	arows, err := db.conn.QueryContext(ctx, `
		SELECT t.asset_id, t.tag_id
		FROM asset_tags t JOIN assets a ON a.id = t.asset_id
		`+where+`
		ORDER BY t.asset_id, t.tag_id
	`, args...)
	if err != nil {
		return nil, mapErr("list asset tags", err)
	}
	defer arows.Close()
	for arows.Next() {
		var assetID, tagID string
		if err := arows.Scan(&assetID, &tagID); err != nil {
			return nil, err
		}
		a := &out[pos[assetID]]
		a.TagIDs = append(a.TagIDs, tagID)
	}
	return out, arows.Err()
}
