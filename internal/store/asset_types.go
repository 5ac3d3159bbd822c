package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
)

const fieldColumns = `f.id, f.asset_type_id, f.name, f.slug, f.field_type, f.input_required,
	f.show_in_table, f.input_min, f.input_max, f.currency, f.parent_tag_id, f.position`

type scanner interface {
	Scan(dest ...any) error
}

func scanField(s scanner) (models.FieldDefinition, error) {
	var (
		f                   models.FieldDefinition
		typ                 string
		min, max            sql.NullFloat64
		currency, parentTag sql.NullString
	)
	err := s.Scan(&f.ID, &f.AssetTypeID, &f.Name, &f.Slug, &typ, &f.InputRequired,
		&f.ShowInTable, &min, &max, &currency, &parentTag, &f.Position)
	if err != nil {
		return f, err
	}
	f.Type = models.FieldType(typ)
	f.InputMin, f.InputMax = floatPtr(min), floatPtr(max)
	f.Currency, f.ParentTagID = strPtr(currency), strPtr(parentTag)
	return f, nil
}

// ListAssetTypes returns every asset type of the team with its own fields.
// Records come in creation order.
func (db *DB) ListAssetTypes(ctx context.Context, teamID string) ([]models.AssetType, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, team_id, name, parent_id, created_at, updated_at
		FROM asset_types WHERE team_id = ?
		ORDER BY created_at, rowid
	`, teamID)
	if err != nil {
		return nil, mapErr("list asset types", err)
	}
	defer rows.Close()

	out := []models.AssetType{}
	pos := map[string]int{}
	for rows.Next() {
		var (
			at     models.AssetType
			parent sql.NullString
		)
		if err := rows.Scan(&at.ID, &at.TeamID, &at.Name, &parent, &at.CreatedAt, &at.UpdatedAt); err != nil {
			return nil, err
		}
		at.ParentID = strPtr(parent)
		at.Fields = []models.FieldDefinition{}
		pos[at.ID] = len(out)
		out = append(out, at)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	frows, err := db.conn.QueryContext(ctx, `
		SELECT `+fieldColumns+`
		FROM custom_fields f JOIN asset_types t ON t.id = f.asset_type_id
		WHERE t.team_id = ?
		ORDER BY f.asset_type_id, f.position
	`, teamID)
	if err != nil {
		return nil, mapErr("list fields", err)
	}
	defer frows.Close()
	for frows.Next() {
		f, err := scanField(frows)
		if err != nil {
			return nil, err
		}
		if i, ok := pos[f.AssetTypeID]; ok {
			out[i].Fields = append(out[i].Fields, f)
		}
	}
	return out, frows.Err()
}

// GetAssetType returns one asset type of the team with its own fields.
func (db *DB) GetAssetType(ctx context.Context, teamID, id string) (*models.AssetType, error) {
	var (
		at     models.AssetType
		parent sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, team_id, name, parent_id, created_at, updated_at
		FROM asset_types WHERE team_id = ? AND id = ?
	`, teamID, id).Scan(&at.ID, &at.TeamID, &at.Name, &parent, &at.CreatedAt, &at.UpdatedAt)
	if err != nil {
		return nil, mapErr(fmt.Sprintf("asset type %s", id), err)
	}
	at.ParentID = strPtr(parent)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+fieldColumns+` FROM custom_fields f WHERE f.asset_type_id = ? ORDER BY f.position`, id)
	if err != nil {
		return nil, mapErr("list fields", err)
	}
	defer rows.Close()
	at.Fields = []models.FieldDefinition{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		at.Fields = append(at.Fields, f)
	}
	return &at, rows.Err()
}

// CreateAssetType inserts at and its fields. IDs, timestamps and field
// positions are assigned in place.
func (db *DB) CreateAssetType(ctx context.Context, at *models.AssetType) error {
	now := db.now()
	at.ID = uuid.NewString()
	at.CreatedAt, at.UpdatedAt = now, now
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO asset_types (id, team_id, name, parent_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, at.ID, at.TeamID, at.Name, nullString(at.ParentID), now, now); err != nil {
			return mapErr("create asset type", err)
		}
		for i := range at.Fields {
			f := &at.Fields[i]
			f.ID = uuid.NewString()
			f.AssetTypeID = at.ID
			f.Position = i
			if err := insertField(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateAssetType applies a rename/re-parent of at and the field plan in one
// transaction. Values recorded for deleted fields are removed before the
// fields themselves. at.Fields is replaced by the resulting field list.
func (db *DB) UpdateAssetType(ctx context.Context, at *models.AssetType, plan schema.FieldPlan) error {
	at.UpdatedAt = db.now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE asset_types SET name = ?, parent_id = ?, updated_at = ?
			WHERE team_id = ? AND id = ?
		`, at.Name, nullString(at.ParentID), at.UpdatedAt, at.TeamID, at.ID)
		if err != nil {
			return mapErr("update asset type", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("asset type %s: %w", at.ID, apperr.ErrNotFound)
		}

		for _, id := range plan.Delete {
			if err := deleteField(ctx, tx, at.ID, id); err != nil {
				return err
			}
		}
		for i := range plan.Update {
			f := &plan.Update[i]
			f.AssetTypeID = at.ID
			if _, err := tx.ExecContext(ctx, `
				UPDATE custom_fields SET name = ?, slug = ?, field_type = ?, input_required = ?,
					show_in_table = ?, input_min = ?, input_max = ?, currency = ?, parent_tag_id = ?,
					position = ?
				WHERE id = ? AND asset_type_id = ?
			`, f.Name, f.Slug, string(f.Type), f.InputRequired, f.ShowInTable, nullFloat(f.InputMin),
				nullFloat(f.InputMax), nullString(f.Currency), nullString(f.ParentTagID), f.Position,
				f.ID, at.ID); err != nil {
				return mapErr("update field", err)
			}
		}
		for i := range plan.Create {
			f := &plan.Create[i]
			f.ID = uuid.NewString()
			f.AssetTypeID = at.ID
			if err := insertField(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	at.Fields = mergeByPosition(plan.Update, plan.Create)
	return nil
}

// DeleteAssetType executes a splice-out plan: the node's children move to its
// former parent, then its fields and the node are deleted. Usage is counted
// again inside the transaction.
func (db *DB) DeleteAssetType(ctx context.Context, teamID string, plan *schema.DeletePlan) error {
	id := plan.Node.ID
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM assets WHERE team_id = ? AND asset_type_id = ?`, teamID, id).
			Scan(&n); err != nil {
			return mapErr("count assets", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %d assets use asset type %s", apperr.ErrInUse, n, id)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE asset_types SET parent_id = ?, updated_at = ? WHERE team_id = ? AND parent_id = ?`,
			nullString(plan.NewParentID), db.now(), teamID, id); err != nil {
			return mapErr("re-parent children", err)
		}
		for _, f := range plan.Node.OwnFields {
			if err := deleteField(ctx, tx, id, f.ID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM custom_fields WHERE asset_type_id = ?`, id); err != nil {
			return mapErr("delete fields", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM asset_types WHERE team_id = ? AND id = ?`, teamID, id)
		if err != nil {
			return mapErr("delete asset type", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("asset type %s: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
}

// CountAssets returns the number of assets of the given type.
func (db *DB) CountAssets(ctx context.Context, teamID, assetTypeID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM assets WHERE team_id = ? AND asset_type_id = ?`, teamID, assetTypeID).
		Scan(&n)
	if err != nil {
		return 0, mapErr("count assets", err)
	}
	return n, nil
}

func insertField(ctx context.Context, tx *sql.Tx, f *models.FieldDefinition) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO custom_fields (id, asset_type_id, name, slug, field_type, input_required,
			show_in_table, input_min, input_max, currency, parent_tag_id, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.AssetTypeID, f.Name, f.Slug, string(f.Type), f.InputRequired, f.ShowInTable,
		nullFloat(f.InputMin), nullFloat(f.InputMax), nullString(f.Currency), nullString(f.ParentTagID),
		f.Position)
	return mapErr("insert field", err)
}

func deleteField(ctx context.Context, tx *sql.Tx, assetTypeID, fieldID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_value_tags WHERE field_id = ?`, fieldID); err != nil {
		return mapErr("delete value tags", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_values WHERE field_id = ?`, fieldID); err != nil {
		return mapErr("delete values", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM custom_fields WHERE id = ? AND asset_type_id = ?`, fieldID, assetTypeID); err != nil {
		return mapErr("delete field", err)
	}
	return nil
}

func mergeByPosition(a, b []models.FieldDefinition) []models.FieldDefinition {
	out := make([]models.FieldDefinition, len(a)+len(b))
	n := 0
	for _, src := range [][]models.FieldDefinition{a, b} {
		for _, f := range src {
			if f.Position >= 0 && f.Position < len(out) {
				out[f.Position] = f
				n++
			}
		}
	}
	return out[:n]
}
