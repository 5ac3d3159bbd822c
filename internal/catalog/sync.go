package catalog

import (
	"context"
	"log/slog"
	"sync"
)

// Applier creates or extends asset types from templates.
type Applier interface {
	ApplyTemplates(ctx context.Context, teamID string, templates []Template) (ApplyResult, error)
}

// SyncReport summarizes one Sync pass.
type SyncReport struct {
	Applied   int
	Unchanged int
	Failed    int
	Result    ApplyResult
}

// Syncer applies the template files of an FS to one team. Files are
// applied again only when their checksum changed since the last successful
// pass. Applying is additive: asset types are matched by name below the same
// parent and missing fields are added; nothing is removed.
type Syncer struct {
	fs      *FS
	applier Applier
	teamID  string
	logger  *slog.Logger

	mu   sync.Mutex
	sums map[string]string
}

// NewSyncer creates a Syncer.
func NewSyncer(fs *FS, applier Applier, teamID string, logger *slog.Logger) *Syncer {
	return &Syncer{fs: fs, applier: applier, teamID: teamID, logger: logger, sums: map[string]string{}}
}

// Sync applies every new or changed template file. Individual failures are
// logged and counted; only listing errors abort.
func (s *Syncer) Sync(ctx context.Context) (SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rep SyncReport
	entries, err := s.fs.List()
	if err != nil {
		return rep, err
	}
	for _, e := range entries {
		if s.sums[e.Path] == e.Checksum {
			rep.Unchanged++
			continue
		}
		res, err := s.apply(ctx, e.Path)
		if err != nil {
			rep.Failed++
			s.logger.Warn("catalog: apply failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		s.sums[e.Path] = e.Checksum
		rep.Applied++
		rep.Result.Add(res)
		s.logger.Debug("catalog: applied",
			slog.String("path", e.Path),
			slog.Int("created", res.Created),
			slog.Int("updated", res.Updated))
	}

	s.logger.Info("catalog: sync done",
		slog.String("team_id", s.teamID),
		slog.Int("applied", rep.Applied),
		slog.Int("unchanged", rep.Unchanged),
		slog.Int("failed", rep.Failed))
	return rep, nil
}

func (s *Syncer) apply(ctx context.Context, path string) (ApplyResult, error) {
	data, err := s.fs.Read(path)
	if err != nil {
		return ApplyResult{}, err
	}
	f, err := Parse(data)
	if err != nil {
		return ApplyResult{}, err
	}
	return s.applier.ApplyTemplates(ctx, s.teamID, f.AssetTypes)
}
