package index

import (
	"context"
	"log/slog"
)

// Source produces the documents a team's index should contain.
type Source interface {
	Documents(ctx context.Context, teamID string) ([]Document, error)
}

// SyncResult counts the changes made by Sync.
type SyncResult struct {
	Upserted int `json:"upserted"`
	Removed  int `json:"removed"`
	Failed   int `json:"failed"`
}

// Sync brings the team's index up to date with src:
//   - every source document is upserted
//   - indexed documents the source no longer has are deleted
//
// Individual failures are logged and counted; only listing errors abort.
func Sync(ctx context.Context, idx DocumentIndex, src Source, teamID string, logger *slog.Logger) (SyncResult, error) {
	var res SyncResult
	docs, err := src.Documents(ctx, teamID)
	if err != nil {
		return res, err
	}
	indexed, err := idx.DocumentIDs(ctx, teamID)
	if err != nil {
		return res, err
	}

	live := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		live[d.ID] = struct{}{}
		if err := idx.UpsertDocument(ctx, teamID, d); err != nil {
			res.Failed++
			logger.Warn("sync: index failed", slog.String("team_id", teamID), slog.String("id", d.ID), slog.String("error", err.Error()))
			continue
		}
		res.Upserted++
	}

	// Remove stale entries.
	for id := range indexed {
		if _, ok := live[id]; ok {
			continue
		}
		if err := idx.DeleteDocument(ctx, teamID, id); err != nil {
			res.Failed++
			logger.Warn("sync: delete failed", slog.String("team_id", teamID), slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		res.Removed++
		logger.Debug("sync: removed stale", slog.String("team_id", teamID), slog.String("id", id))
	}

	logger.Info("sync: done",
		slog.String("team_id", teamID),
		slog.Int("upserted", res.Upserted),
		slog.Int("removed", res.Removed),
		slog.Int("failed", res.Failed))
	return res, nil
}
