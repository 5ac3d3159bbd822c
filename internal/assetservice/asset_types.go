package assetservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/internal/slug"
	"github.com/starford/othala/internal/sse"
)

// AssetTypeInput is the writable part of an asset type. Fields lists the
// node's own fields in display order; fields carrying a known id are
// updated, the others created, and prior fields missing from the list are
// deleted together with their values.
type AssetTypeInput struct {
	Name     string                   `json:"name"`
	ParentID *string                  `json:"parentId,omitempty"`
	Fields   []models.FieldDefinition `json:"fields"`
}

// Tree returns the team's asset-type forest.
func (s *Service) Tree(ctx context.Context, userID, teamID string) (*schema.Tree, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return s.resolver.Tree(ctx, teamID)
}

// Flatten lists the team's asset types in pre-order.
func (s *Service) Flatten(ctx context.Context, userID, teamID string, withLevel bool) ([]schema.Entry, error) {
	tree, err := s.Tree(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(tree.Flatten(withLevel)), nil
}

// GetAssetType returns one resolved asset type with its effective fields.
func (s *Service) GetAssetType(ctx context.Context, userID, teamID, id string) (*schema.Node, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return s.resolver.ResolveByID(ctx, teamID, id)
}

// CreateAssetType validates and stores a new asset type.
func (s *Service) CreateAssetType(ctx context.Context, userID, teamID string, in AssetTypeInput) (*schema.Node, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return s.createAssetType(ctx, teamID, in)
}

func (s *Service) createAssetType(ctx context.Context, teamID string, in AssetTypeInput) (*schema.Node, error) {
	name, err := validateTypeName(in.Name)
	if err != nil {
		return nil, err
	}
	tree, err := s.resolver.Tree(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := tree.CheckParent("", in.ParentID); err != nil {
		return nil, err
	}
	fields, err := s.prepareFields(ctx, teamID, tree, "", in.ParentID, nil, in.Fields)
	if err != nil {
		return nil, err
	}

	at := &models.AssetType{TeamID: teamID, Name: name, ParentID: in.ParentID, Fields: fields}
	if err := s.store.CreateAssetType(ctx, at); err != nil {
		return nil, err
	}
	s.pub.PublishChange(teamID, ResourceAssetType, sse.KindCreated, at.ID)
	return s.resolver.ResolveByID(ctx, teamID, at.ID)
}

// UpdateAssetType renames, re-parents and re-fields an asset type. The
// search documents of every asset in the affected subtree are rebuilt.
func (s *Service) UpdateAssetType(ctx context.Context, userID, teamID, id string, in AssetTypeInput) (*schema.Node, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return s.updateAssetType(ctx, teamID, id, in)
}

func (s *Service) updateAssetType(ctx context.Context, teamID, id string, in AssetTypeInput) (*schema.Node, error) {
	name, err := validateTypeName(in.Name)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetAssetType(ctx, teamID, id)
	if err != nil {
		return nil, err
	}
	tree, err := s.resolver.Tree(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := tree.CheckParent(id, in.ParentID); err != nil {
		return nil, err
	}
	fields, err := s.prepareFields(ctx, teamID, tree, id, in.ParentID, existing.Fields, in.Fields)
	if err != nil {
		return nil, err
	}

	plan := schema.PlanFieldUpdate(existing.Fields, fields)
	at := &models.AssetType{ID: id, TeamID: teamID, Name: name, ParentID: in.ParentID}
	if err := s.store.UpdateAssetType(ctx, at, plan); err != nil {
		return nil, err
	}

	ids := []string{id}
	for _, d := range tree.Descendants(id) {
		ids = append(ids, d.ID)
	}
	s.reindexTypes(ctx, teamID, ids)
	s.pub.PublishChange(teamID, ResourceAssetType, sse.KindUpdated, id)
	return s.resolver.ResolveByID(ctx, teamID, id)
}

// DeleteAssetType splices an unused asset type out of the hierarchy. Its
// children move to its parent and lose the fields it declared.
func (s *Service) DeleteAssetType(ctx context.Context, userID, teamID, id string) error {
	if err := s.member(ctx, userID, teamID); err != nil {
		return err
	}
	plan, err := s.resolver.PlanDelete(ctx, teamID, id)
	if err != nil {
		return err
	}
	var below []string
	var walk func(ns []*schema.Node)
	walk = func(ns []*schema.Node) {
		for _, n := range ns {
			below = append(below, n.ID)
			walk(n.Children)
		}
	}
	walk(plan.Node.Children)

	if err := s.store.DeleteAssetType(ctx, teamID, plan); err != nil {
		return err
	}
	s.reindexTypes(ctx, teamID, below)
	s.pub.PublishChange(teamID, ResourceAssetType, sse.KindDeleted, id)
	return nil
}

func validateTypeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required, validation.Length(1, 100)); err != nil {
		return "", fmt.Errorf("%w: name: %v", apperr.ErrValidation, err)
	}
	return name, nil
}

// reservedSlugs are document keys the projection writes itself.
var reservedSlugs = map[string]bool{
	KeyTags:                                  true,
	strings.ToLower(KeyAssetTypeID):          true,
	strings.ToLower(models.AssetTypeNameKey): true,
}

// prepareFields validates the requested own fields of node nodeID (empty on
// create) placed below parentID. Known fields keep their slug and type; new
// fields get a slug unique among the inherited fields, the fields of the
// node's descendants, its siblings in the list and the reserved document
// keys. No own field in the moved subtree may share a slug with a field
// inherited from the new parent.
func (s *Service) prepareFields(ctx context.Context, teamID string, tree *schema.Tree, nodeID string,
	parentID *string, prior, in []models.FieldDefinition) ([]models.FieldDefinition, error) {
	inherited := map[string]bool{}
	if parentID != nil {
		if p, ok := tree.FindByID(*parentID); ok {
			for _, f := range p.EffectiveFields {
				inherited[f.Slug] = true
			}
		}
	}
	taken := map[string]bool{}
	for k := range inherited {
		taken[k] = true
	}
	if nodeID != "" {
		for _, d := range tree.Descendants(nodeID) {
			for _, f := range d.OwnFields {
				if inherited[f.Slug] {
					return nil, fmt.Errorf("%w: field %q of %q collides with an inherited field", apperr.ErrValidation, f.Name, d.Name)
				}
				taken[f.Slug] = true
			}
		}
	}
	priorByID := make(map[string]models.FieldDefinition, len(prior))
	for _, f := range prior {
		priorByID[f.ID] = f
	}

	out := make([]models.FieldDefinition, 0, len(in))
	// Kept fields claim their slugs before new ones are derived.
	for _, f := range in {
		if p, ok := priorByID[f.ID]; ok {
			if taken[p.Slug] {
				return nil, fmt.Errorf("%w: field %q collides with an inherited field", apperr.ErrValidation, p.Name)
			}
			taken[p.Slug] = true
		}
	}
	for i, f := range in {
		f.Name = strings.TrimSpace(f.Name)
		if err := f.ValidateDefinition(); err != nil {
			return nil, fmt.Errorf("%w: fields[%d]: %v", apperr.ErrValidation, i, err)
		}
		if p, ok := priorByID[f.ID]; ok {
			if p.Type != f.Type {
				return nil, fmt.Errorf("%w: fields[%d]: type of an existing field cannot change", apperr.ErrValidation, i)
			}
			f.Slug = p.Slug
		} else {
			f.ID = ""
			f.Slug = slug.Unique(f.Name, func(c string) bool { return taken[c] || reservedSlugs[c] })
			taken[f.Slug] = true
		}
		if f.ParentTagID != nil {
			if _, err := s.store.GetTag(ctx, teamID, *f.ParentTagID); err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return nil, fmt.Errorf("%w: fields[%d]: parent tag %s not found", apperr.ErrValidation, i, *f.ParentTagID)
				}
				return nil, err
			}
		}
		f.Position = i
		out = append(out, f)
	}
	return out, nil
}
