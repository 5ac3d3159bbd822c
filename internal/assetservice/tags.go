package assetservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/sse"
)

// TagInput is the writable part of a tag.
type TagInput struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId,omitempty"`
}

// ListTags returns every tag of the team.
func (s *Service) ListTags(ctx context.Context, userID, teamID string) ([]models.Tag, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	tags, err := s.store.ListTags(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(tags), nil
}

// GetTag returns one tag.
func (s *Service) GetTag(ctx context.Context, userID, teamID, id string) (*models.Tag, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return s.store.GetTag(ctx, teamID, id)
}

// CreateTag stores a new tag below an optional parent.
func (s *Service) CreateTag(ctx context.Context, userID, teamID string, in TagInput) (*models.Tag, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	name, err := validateTagName(in.Name)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if _, err := s.store.GetTag(ctx, teamID, *in.ParentID); err != nil {
			return nil, parentTagErr(err, *in.ParentID)
		}
	}
	t := &models.Tag{TeamID: teamID, Name: name, ParentID: in.ParentID}
	if err := s.store.CreateTag(ctx, t); err != nil {
		return nil, err
	}
	s.pub.PublishChange(teamID, ResourceTag, sse.KindCreated, t.ID)
	return t, nil
}

// UpdateTag renames or re-parents a tag. A tag cannot move below itself or
// one of its descendants. Documents of assets carrying the tag are rebuilt.
func (s *Service) UpdateTag(ctx context.Context, userID, teamID, id string, in TagInput) (*models.Tag, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	name, err := validateTagName(in.Name)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetTag(ctx, teamID, id)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		tags, err := s.store.ListTags(ctx, teamID)
		if err != nil {
			return nil, err
		}
		if err := checkTagParent(newTagIndex(tags), id, *in.ParentID); err != nil {
			return nil, err
		}
	}

	existing.Name = name
	existing.ParentID = in.ParentID
	if err := s.store.UpdateTag(ctx, existing); err != nil {
		return nil, err
	}
	if err := s.reindexTagged(ctx, teamID, id); err != nil {
		return nil, err
	}
	s.pub.PublishChange(teamID, ResourceTag, sse.KindUpdated, id)
	return existing, nil
}

// DeleteTag splices a tag out of the hierarchy and rebuilds the documents of
// the assets that carried it.
func (s *Service) DeleteTag(ctx context.Context, userID, teamID, id string) error {
	if err := s.member(ctx, userID, teamID); err != nil {
		return err
	}
	affected, err := s.store.DeleteTag(ctx, teamID, id)
	if err != nil {
		return err
	}
	s.reindexIDs(ctx, teamID, affected)
	s.pub.PublishChange(teamID, ResourceTag, sse.KindDeleted, id)
	return nil
}

// checkTagParent rejects making parentID the parent of id when that would
// close a cycle.
func checkTagParent(tags tagIndex, id, parentID string) error {
	if parentID == id {
		return fmt.Errorf("%w: tag cannot be its own parent", apperr.ErrInvalidHierarchy)
	}
	if _, ok := tags[parentID]; !ok {
		return fmt.Errorf("%w: parent tag %s not found", apperr.ErrValidation, parentID)
	}
	if tags.descendsFrom(parentID, id) {
		return fmt.Errorf("%w: tag cannot be moved below its own descendant", apperr.ErrInvalidHierarchy)
	}
	return nil
}

func (s *Service) reindexTagged(ctx context.Context, teamID, tagID string) error {
	assets, err := s.store.ListAssets(ctx, teamID, nil)
	if err != nil {
		return err
	}
	var tagged []string
	for _, a := range assets {
		if carriesTag(a, tagID) {
			tagged = append(tagged, a.ID)
		}
	}
	s.reindexIDs(ctx, teamID, tagged)
	return nil
}

func carriesTag(a models.Asset, tagID string) bool {
	for _, id := range a.TagIDs {
		if id == tagID {
			return true
		}
	}
	for _, v := range a.Values {
		for _, id := range v.TagIDs {
			if id == tagID {
				return true
			}
		}
	}
	return false
}

func (s *Service) reindexIDs(ctx context.Context, teamID string, ids []string) {
	assets := make([]models.Asset, 0, len(ids))
	for _, id := range ids {
		a, err := s.store.GetAsset(ctx, teamID, id)
		if err != nil {
			continue
		}
		assets = append(assets, *a)
	}
	s.reindexAssets(ctx, teamID, assets)
}

func validateTagName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required, validation.Length(1, 100)); err != nil {
		return "", fmt.Errorf("%w: name: %v", apperr.ErrValidation, err)
	}
	return name, nil
}

func parentTagErr(err error, id string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%w: parent tag %s not found", apperr.ErrValidation, id)
	}
	return err
}
