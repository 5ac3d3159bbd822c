package assetservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/othala/internal/catalog"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
)

var _ catalog.Applier = (*Service)(nil)

// ApplyTemplates creates the asset types described by templates in the
// team, matching existing types by name below the same parent. Fields
// missing from a matched type (neither declared nor inherited) are appended;
// nothing is renamed or removed. It runs without a user and is meant for the
// template catalog.
func (s *Service) ApplyTemplates(ctx context.Context, teamID string, templates []catalog.Template) (catalog.ApplyResult, error) {
	var res catalog.ApplyResult
	if _, err := s.store.GetTeam(ctx, teamID); err != nil {
		return res, err
	}
	for _, t := range templates {
		if err := s.applyTemplate(ctx, teamID, nil, t, &res); err != nil {
			return res, fmt.Errorf("template %q: %w", t.Name, err)
		}
	}
	return res, nil
}

func (s *Service) applyTemplate(ctx context.Context, teamID string, parentID *string, t catalog.Template, res *catalog.ApplyResult) error {
	tree, err := s.resolver.Tree(ctx, teamID)
	if err != nil {
		return err
	}
	siblings := tree.Roots
	var inherited []models.FieldDefinition
	if parentID != nil {
		p, ok := tree.FindByID(*parentID)
		if !ok {
			return fmt.Errorf("parent %s vanished", *parentID)
		}
		siblings, inherited = p.Children, p.EffectiveFields
	}

	name := strings.TrimSpace(t.Name)
	var node *schema.Node
	for _, n := range siblings {
		if strings.EqualFold(n.Name, name) {
			node = n
			break
		}
	}

	switch {
	case node == nil:
		node, err = s.createAssetType(ctx, teamID, AssetTypeInput{Name: name, ParentID: parentID, Fields: missingFields(inherited, t.Definitions())})
		if err != nil {
			return err
		}
		res.Created++
	default:
		missing := missingFields(node.EffectiveFields, t.Definitions())
		if len(missing) > 0 {
			fields := append(append([]models.FieldDefinition{}, node.OwnFields...), missing...)
			node, err = s.updateAssetType(ctx, teamID, node.ID, AssetTypeInput{Name: node.Name, ParentID: node.ParentID, Fields: fields})
			if err != nil {
				return err
			}
			res.Updated++
		}
	}

	for _, c := range t.Children {
		if err := s.applyTemplate(ctx, teamID, &node.ID, c, res); err != nil {
			return err
		}
	}
	return nil
}

// missingFields returns the fields of want whose name matches none of have.
func missingFields(have, want []models.FieldDefinition) []models.FieldDefinition {
	var out []models.FieldDefinition
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h.Name, w.Name) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, w)
		}
	}
	return out
}
