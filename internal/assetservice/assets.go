package assetservice

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/internal/sse"
)

// AssetInput is the writable part of an asset.
type AssetInput struct {
	AssetTypeID string              `json:"assetTypeId"`
	Name        string              `json:"name"`
	Values      []models.FieldValue `json:"values"`
	TagIDs      []string            `json:"tagIds"`
}

// AssetDetail is an asset together with the resolved type it conforms to.
type AssetDetail struct {
	models.Asset
	AssetTypeName string                   `json:"assetTypeName"`
	Fields        []models.FieldDefinition `json:"fields"`
}

// ListOptions narrows ListAssets.
type ListOptions struct {
	AssetTypeID string
	// IncludeDescendants also lists assets of every type below AssetTypeID.
	IncludeDescendants bool
}

// CreateAsset validates in against the effective fields of its type, stores
// it and indexes it.
func (s *Service) CreateAsset(ctx context.Context, userID, teamID string, in AssetInput) (*AssetDetail, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	a, node, err := s.prepareAsset(ctx, teamID, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAsset(ctx, a); err != nil {
		return nil, err
	}
	if err := s.indexAsset(ctx, node, *a); err != nil {
		return nil, err
	}
	s.pub.PublishChange(teamID, ResourceAsset, sse.KindCreated, a.ID)
	return detail(node, *a), nil
}

// UpdateAsset replaces the name, type, values and tags of an asset.
func (s *Service) UpdateAsset(ctx context.Context, userID, teamID, id string, in AssetInput) (*AssetDetail, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetAsset(ctx, teamID, id); err != nil {
		return nil, err
	}
	a, node, err := s.prepareAsset(ctx, teamID, in)
	if err != nil {
		return nil, err
	}
	a.ID = id
	if err := s.store.UpdateAsset(ctx, a); err != nil {
		return nil, err
	}
	if err := s.indexAsset(ctx, node, *a); err != nil {
		return nil, err
	}
	s.pub.PublishChange(teamID, ResourceAsset, sse.KindUpdated, id)
	return detail(node, *a), nil
}

// GetAsset returns one asset with its resolved type.
func (s *Service) GetAsset(ctx context.Context, userID, teamID, id string) (*AssetDetail, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	a, err := s.store.GetAsset(ctx, teamID, id)
	if err != nil {
		return nil, err
	}
	node, err := s.resolver.ResolveByID(ctx, teamID, a.AssetTypeID)
	if err != nil {
		return nil, err
	}
	return detail(node, *a), nil
}

// ListAssets returns the team's assets, optionally narrowed to a type.
func (s *Service) ListAssets(ctx context.Context, userID, teamID string, opts ListOptions) ([]models.Asset, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	var ids []string
	if opts.AssetTypeID != "" {
		tree, err := s.resolver.Tree(ctx, teamID)
		if err != nil {
			return nil, err
		}
		if _, ok := tree.FindByID(opts.AssetTypeID); !ok {
			return nil, fmt.Errorf("asset type %s: %w", opts.AssetTypeID, apperr.ErrNotFound)
		}
		ids = append(ids, opts.AssetTypeID)
		if opts.IncludeDescendants {
			for _, d := range tree.Descendants(opts.AssetTypeID) {
				ids = append(ids, d.ID)
			}
		}
	}
	assets, err := s.store.ListAssets(ctx, teamID, ids)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(assets), nil
}

// DeleteAsset removes an asset and its search document.
func (s *Service) DeleteAsset(ctx context.Context, userID, teamID, id string) error {
	if err := s.member(ctx, userID, teamID); err != nil {
		return err
	}
	if err := s.store.DeleteAsset(ctx, teamID, id); err != nil {
		return err
	}
	if err := s.idx.DeleteDocument(ctx, teamID, id); err != nil {
		return err
	}
	s.pub.PublishChange(teamID, ResourceAsset, sse.KindDeleted, id)
	return nil
}

func (s *Service) prepareAsset(ctx context.Context, teamID string, in AssetInput) (*models.Asset, *schema.Node, error) {
	name := strings.TrimSpace(in.Name)
	if err := validation.Validate(name, validation.Required, validation.Length(1, 200)); err != nil {
		return nil, nil, fmt.Errorf("%w: name: %v", apperr.ErrValidation, err)
	}
	if in.AssetTypeID == "" {
		return nil, nil, fmt.Errorf("%w: assetTypeId is required", apperr.ErrValidation)
	}
	node, err := s.resolver.ResolveByID(ctx, teamID, in.AssetTypeID)
	if err != nil {
		return nil, nil, err
	}
	tags, err := s.store.ListTags(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	ti := newTagIndex(tags)
	values, err := validateValues(node.EffectiveFields, in.Values, ti)
	if err != nil {
		return nil, nil, err
	}
	tagIDs := dedup(in.TagIDs)
	for _, id := range tagIDs {
		if _, ok := ti[id]; !ok {
			return nil, nil, fmt.Errorf("%w: tag %s does not exist", apperr.ErrValidation, id)
		}
	}
	return &models.Asset{
		TeamID:      teamID,
		AssetTypeID: node.ID,
		Name:        name,
		Values:      values,
		TagIDs:      tagIDs,
	}, node, nil
}

func detail(node *schema.Node, a models.Asset) *AssetDetail {
	a.Values = nonNilSlice(a.Values)
	a.TagIDs = nonNilSlice(a.TagIDs)
	return &AssetDetail{
		Asset:         a,
		AssetTypeName: node.Name,
		Fields:        nonNilSlice(node.EffectiveFields),
	}
}
