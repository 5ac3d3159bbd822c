package assetservice

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
)

// Document keys besides field slugs.
const (
	KeyAssetTypeID = "assetTypeId"
	KeyTags        = "tags"
)

// project flattens an asset into its search document. Only the effective
// fields of node contribute; TAG values are indexed by tag name.
func project(node *schema.Node, a models.Asset, tags tagIndex) index.Document {
	doc := index.Document{
		ID:    a.ID,
		Title: a.Name,
		Values: map[string][]string{
			models.AssetTypeNameKey: {node.Name},
			KeyAssetTypeID:          {node.ID},
		},
		Numbers:   map[string]float64{},
		UpdatedAt: a.UpdatedAt,
	}
	body := []string{a.Name}
	if names := tags.names(a.TagIDs); len(names) > 0 {
		doc.Values[KeyTags] = names
		body = append(body, names...)
	}

	byField := make(map[string]models.FieldValue, len(a.Values))
	for _, v := range a.Values {
		byField[v.FieldID] = v
	}
	for _, f := range node.EffectiveFields {
		v, ok := byField[f.ID]
		if !ok {
			continue
		}
		switch f.Type {
		case models.FieldTag:
			names := tags.names(v.TagIDs)
			if len(names) == 0 {
				continue
			}
			doc.Values[f.Slug] = names
			body = append(body, names...)
		case models.FieldNumber, models.FieldCurrency:
			if n, err := strconv.ParseFloat(v.Value, 64); err == nil {
				doc.Numbers[f.Slug] = n
			}
			doc.Values[f.Slug] = []string{v.Value}
		case models.FieldString:
			doc.Values[f.Slug] = []string{v.Value}
			body = append(body, v.Value)
		default:
			doc.Values[f.Slug] = []string{v.Value}
		}
	}
	doc.Body = strings.Join(body, "\n")
	return doc
}

// documentSource projects the store contents of a team for index.Sync.
type documentSource struct{ s *Service }

func (d documentSource) Documents(ctx context.Context, teamID string) ([]index.Document, error) {
	tree, err := d.s.resolver.Tree(ctx, teamID)
	if err != nil {
		return nil, err
	}
	tags, err := d.s.store.ListTags(ctx, teamID)
	if err != nil {
		return nil, err
	}
	assets, err := d.s.store.ListAssets(ctx, teamID, nil)
	if err != nil {
		return nil, err
	}
	ti := newTagIndex(tags)
	docs := make([]index.Document, 0, len(assets))
	for _, a := range assets {
		node, ok := tree.FindByID(a.AssetTypeID)
		if !ok {
			d.s.logger.Warn("index: asset type outside the forest, asset skipped",
				slog.String("team_id", teamID),
				slog.String("asset_id", a.ID),
				slog.String("asset_type_id", a.AssetTypeID))
			continue
		}
		docs = append(docs, project(node, a, ti))
	}
	return docs, nil
}

// Reindex rebuilds the team's search index from the store. Admins only.
func (s *Service) Reindex(ctx context.Context, userID, teamID string) (index.SyncResult, error) {
	if err := s.authz.RequireAdmin(ctx, userID, teamID); err != nil {
		return index.SyncResult{}, err
	}
	return s.syncTeam(ctx, teamID)
}

// ReindexAll rebuilds the index of every team. Failures are logged per team.
func (s *Service) ReindexAll(ctx context.Context) error {
	ids, err := s.store.TeamIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.syncTeam(ctx, id); err != nil {
			s.logger.Error("index: team sync failed", slog.String("team_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *Service) syncTeam(ctx context.Context, teamID string) (index.SyncResult, error) {
	res, err := index.Sync(ctx, s.idx, documentSource{s}, teamID, s.logger)
	s.obs.ObserveSync(err)
	return res, err
}

// indexAsset upserts the document of one asset.
func (s *Service) indexAsset(ctx context.Context, node *schema.Node, a models.Asset) error {
	tags, err := s.store.ListTags(ctx, a.TeamID)
	if err != nil {
		return err
	}
	return s.idx.UpsertDocument(ctx, a.TeamID, project(node, a, newTagIndex(tags)))
}

// reindexTypes rebuilds the documents of every asset of the given types.
// Failures are logged; Reindex repairs what is left behind.
func (s *Service) reindexTypes(ctx context.Context, teamID string, typeIDs []string) {
	if len(typeIDs) == 0 {
		return
	}
	assets, err := s.store.ListAssets(ctx, teamID, typeIDs)
	if err != nil {
		s.logger.Warn("index: list assets failed", slog.String("team_id", teamID), slog.String("error", err.Error()))
		return
	}
	s.reindexAssets(ctx, teamID, assets)
}

func (s *Service) reindexAssets(ctx context.Context, teamID string, assets []models.Asset) {
	if len(assets) == 0 {
		return
	}
	tree, err := s.resolver.Tree(ctx, teamID)
	if err != nil {
		s.logger.Warn("index: build tree failed", slog.String("team_id", teamID), slog.String("error", err.Error()))
		return
	}
	tags, err := s.store.ListTags(ctx, teamID)
	if err != nil {
		s.logger.Warn("index: list tags failed", slog.String("team_id", teamID), slog.String("error", err.Error()))
		return
	}
	ti := newTagIndex(tags)
	for _, a := range assets {
		node, ok := tree.FindByID(a.AssetTypeID)
		if !ok {
			continue
		}
		if err := s.idx.UpsertDocument(ctx, teamID, project(node, a, ti)); err != nil {
			s.logger.Warn("index: upsert failed",
				slog.String("team_id", teamID),
				slog.String("asset_id", a.ID),
				slog.String("error", err.Error()))
		}
	}
}
