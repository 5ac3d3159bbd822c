package assetservice

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/sse"
)

// CreateTeam creates a team owned by userID.
func (s *Service) CreateTeam(ctx context.Context, userID, name string) (*models.Team, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required, validation.Length(1, 100)); err != nil {
		return nil, fmt.Errorf("%w: name: %v", apperr.ErrValidation, err)
	}
	team, err := s.store.CreateTeam(ctx, name, userID)
	if err != nil {
		return nil, err
	}
	s.pub.PublishChange(team.ID, ResourceTeam, sse.KindCreated, team.ID)
	return team, nil
}

// ListTeams returns the teams userID belongs to.
func (s *Service) ListTeams(ctx context.Context, userID string) ([]models.Team, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}
	teams, err := s.store.ListTeams(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(teams), nil
}

// AddMember adds memberID to the team or changes its role. Only admins may
// manage members.
func (s *Service) AddMember(ctx context.Context, userID, teamID, memberID string, role models.Role) error {
	if err := s.authz.RequireAdmin(ctx, userID, teamID); err != nil {
		return err
	}
	if err := validation.Validate(string(role), validation.Required,
		validation.In(string(models.RoleMember), string(models.RoleAdmin))); err != nil {
		return fmt.Errorf("%w: role: %v", apperr.ErrValidation, err)
	}
	if strings.TrimSpace(memberID) == "" {
		return fmt.Errorf("%w: user id is required", apperr.ErrValidation)
	}
	if err := s.store.AddMember(ctx, teamID, memberID, role); err != nil {
		return err
	}
	s.pub.PublishChange(teamID, ResourceTeam, sse.KindUpdated, teamID)
	return nil
}
