package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/models"
)

// CreateTeam creates a team and makes ownerID its first admin.
func (db *DB) CreateTeam(ctx context.Context, name, ownerID string) (*models.Team, error) {
	t := &models.Team{ID: uuid.NewString(), Name: name, CreatedAt: db.now()}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, name, created_at) VALUES (?, ?, ?)`,
			t.ID, t.Name, t.CreatedAt); err != nil {
			return mapErr("create team", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_members (team_id, user_id, role) VALUES (?, ?, ?)`,
			t.ID, ownerID, models.RoleAdmin); err != nil {
			return mapErr("add owner", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTeam returns a team by id.
func (db *DB) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	var t models.Team
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM teams WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, mapErr("get team", err)
	}
	return &t, nil
}

// ListTeams returns the teams userID belongs to.
func (db *DB) ListTeams(ctx context.Context, userID string) ([]models.Team, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = ?
		ORDER BY t.name
	`, userID)
	if err != nil {
		return nil, mapErr("list teams", err)
	}
	defer rows.Close()

	out := []models.Team{}
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TeamIDs returns the id of every team.
func (db *DB) TeamIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM teams ORDER BY created_at`)
	if err != nil {
		return nil, mapErr("team ids", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AddMember adds userID to the team or changes its role.
func (db *DB) AddMember(ctx context.Context, teamID, userID string, role models.Role) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(team_id, user_id) DO UPDATE SET role = excluded.role
	`, teamID, userID, role)
	return mapErr("add member", err)
}

// MemberRole returns the role of userID in the team, or apperr.ErrNotFound
// when the user is not a member.
func (db *DB) MemberRole(ctx context.Context, teamID, userID string) (models.Role, error) {
	var role string
	err := db.conn.QueryRowContext(ctx,
		`SELECT role FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID).
		Scan(&role)
	if err != nil {
		return "", mapErr(fmt.Sprintf("member %s", userID), err)
	}
	return models.Role(role), nil
}
