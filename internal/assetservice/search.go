package assetservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/facet"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
)

// Search runs a raw query against the team's index.
func (s *Service) Search(ctx context.Context, userID, teamID string, req index.SearchRequest) (*index.SearchResponse, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	resp, err := s.idx.Search(ctx, teamID, req)
	s.obs.ObserveSearch(err)
	return resp, err
}

// SessionView is the state of one filter session.
type SessionView struct {
	ID                     string         `json:"id"`
	Filters                []facet.Filter `json:"filters"`
	SelectedAssetTypeNames []string       `json:"selectedAssetTypeNames"`
	Expression             string         `json:"expression"`
}

// SessionSearchInput pages a session search.
type SessionSearchInput struct {
	Query  string `json:"q"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// SessionSearchResult is a session search response together with the
// fields currently offered as facets.
type SessionSearchResult struct {
	Session       SessionView              `json:"session"`
	Results       *index.SearchResponse    `json:"results"`
	FacetedFields []models.FieldDefinition `json:"facetedFields"`
	AutoSelected  bool                     `json:"autoSelected"`
}

// Session returns the state of a filter session, creating it when missing.
func (s *Service) Session(ctx context.Context, userID, teamID, sessionID string) (*SessionView, error) {
	sess, err := s.session(ctx, userID, teamID, sessionID)
	if err != nil {
		return nil, err
	}
	view := s.view(sessionID, sess)
	return &view, nil
}

// UpsertSessionFilter replaces the conditions selected for one field. An
// empty condition list removes the field's filter.
func (s *Service) UpsertSessionFilter(ctx context.Context, userID, teamID, sessionID, fieldID string, conds []facet.Condition) (*SessionView, error) {
	sess, err := s.session(ctx, userID, teamID, sessionID)
	if err != nil {
		return nil, err
	}
	tree, err := s.resolver.Tree(ctx, teamID)
	if err != nil {
		return nil, err
	}
	field, ok := findField(tree, fieldID)
	if !ok {
		return nil, fmt.Errorf("field %s: %w", fieldID, apperr.ErrNotFound)
	}
	for i, c := range conds {
		if strings.TrimSpace(c.Value) == "" {
			return nil, fmt.Errorf("%w: conditions[%d]: value is required", apperr.ErrValidation, i)
		}
		if c.Key == "" {
			conds[i].Key = c.Value
		}
	}
	sess.Update(func(set *facet.FilterSet) {
		set.Upsert(facet.Filter{Field: field, Conditions: conds})
	})
	view := s.view(sessionID, sess)
	return &view, nil
}

// ClearSession removes every field filter of a session. The asset-type
// selection is kept.
func (s *Service) ClearSession(ctx context.Context, userID, teamID, sessionID string) (*SessionView, error) {
	sess, err := s.session(ctx, userID, teamID, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Update(func(set *facet.FilterSet) { set.Clear() })
	view := s.view(sessionID, sess)
	return &view, nil
}

// SetSessionSelection replaces the asset-type names a session is narrowed to.
func (s *Service) SetSessionSelection(ctx context.Context, userID, teamID, sessionID string, names []string) (*SessionView, error) {
	sess, err := s.session(ctx, userID, teamID, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Update(func(set *facet.FilterSet) { set.SetSelectedAssetTypeNames(names) })
	view := s.view(sessionID, sess)
	return &view, nil
}

// SessionSearch searches with the session's compiled expression and reports
// the distribution of the asset-type name and of every facetable field. The
// first non-empty asset-type distribution seeds the selection; the search is
// then repeated so the response reflects it.
func (s *Service) SessionSearch(ctx context.Context, userID, teamID, sessionID string, in SessionSearchInput) (*SessionSearchResult, error) {
	sess, err := s.session(ctx, userID, teamID, sessionID)
	if err != nil {
		return nil, err
	}
	tree, err := s.resolver.Tree(ctx, teamID)
	if err != nil {
		return nil, err
	}
	keys := facetKeys(tree)

	run := func() (*index.SearchResponse, SessionView, error) {
		view := s.view(sessionID, sess)
		resp, err := s.idx.Search(ctx, teamID, index.SearchRequest{
			Query:  in.Query,
			Filter: view.Expression,
			Facets: keys,
			Limit:  in.Limit,
			Offset: in.Offset,
		})
		s.obs.ObserveSearch(err)
		return resp, view, err
	}

	resp, view, err := run()
	if err != nil {
		return nil, err
	}
	auto := sess.Observe(facet.Distribution(resp.FacetDistribution))
	if auto {
		if resp, view, err = run(); err != nil {
			return nil, err
		}
	}
	return &SessionSearchResult{
		Session:       view,
		Results:       resp,
		FacetedFields: facet.FacetedFields(tree, facet.Distribution(resp.FacetDistribution), view.SelectedAssetTypeNames),
		AutoSelected:  auto,
	}, nil
}

func (s *Service) session(ctx context.Context, userID, teamID, sessionID string) (*facet.Session, error) {
	if err := s.member(ctx, userID, teamID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", apperr.ErrValidation)
	}
	return s.sessions.Get(teamID, sessionID), nil
}

func (s *Service) view(id string, sess *facet.Session) SessionView {
	filters, selected, expr := sess.Snapshot(s.compile)
	s.obs.ObserveCompile(s.compile.Grouped)
	return SessionView{
		ID:                     id,
		Filters:                nonNilSlice(filters),
		SelectedAssetTypeNames: nonNilSlice(selected),
		Expression:             expr,
	}
}

// findField looks fieldID up among the fields declared in the tree.
func findField(tree *schema.Tree, fieldID string) (models.FieldDefinition, bool) {
	for _, n := range tree.Nodes() {
		for _, f := range n.OwnFields {
			if f.ID == fieldID {
				return f, true
			}
		}
	}
	return models.FieldDefinition{}, false
}

// facetKeys lists the asset-type name key and the slug of every facetable
// field of the tree.
func facetKeys(tree *schema.Tree) []string {
	keys := []string{models.AssetTypeNameKey}
	seen := map[string]bool{models.AssetTypeNameKey: true}
	for _, n := range tree.Nodes() {
		for _, f := range n.OwnFields {
			if f.Type.Facetable() && !seen[f.Slug] {
				seen[f.Slug] = true
				keys = append(keys, f.Slug)
			}
		}
	}
	return keys
}
