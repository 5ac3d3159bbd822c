// Package authz checks team membership and carries the caller's identity.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Members looks up a user's role in a team. It returns apperr.ErrNotFound
// when the user is not a member.
type Members interface {
	MemberRole(ctx context.Context, teamID, userID string) (models.Role, error)
}

// Authorizer enforces team membership.
type Authorizer struct {
	members Members
}

// New creates an Authorizer backed by members.
func New(members Members) *Authorizer {
	return &Authorizer{members: members}
}

// RequireMembership fails with apperr.ErrUnauthorized unless userID belongs
// to the team. It returns the member's role.
func (a *Authorizer) RequireMembership(ctx context.Context, userID, teamID string) (models.Role, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: no user", apperr.ErrUnauthorized)
	}
	role, err := a.members.MemberRole(ctx, teamID, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", fmt.Errorf("%w: %s is not a member of team %s", apperr.ErrUnauthorized, userID, teamID)
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// RequireAdmin fails with apperr.ErrUnauthorized unless userID is an admin of
// the team.
func (a *Authorizer) RequireAdmin(ctx context.Context, userID, teamID string) error {
	role, err := a.RequireMembership(ctx, userID, teamID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return fmt.Errorf("%w: %s is not an admin of team %s", apperr.ErrUnauthorized, userID, teamID)
	}
	return nil
}
