package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period Watch waits for before syncing.
const DefaultDebounce = 200 * time.Millisecond

// Watch runs an initial Sync and then re-syncs after template files are
// created, written or renamed, until ctx is cancelled. Bursts of events are
// collapsed into one pass after debounce of quiet. onSync, if non-nil, is
// called after every pass.
//
// New directories created at runtime are added to the watch list.
func Watch(ctx context.Context, s *Syncer, debounce time.Duration, logger *slog.Logger, onSync func(SyncReport)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.fs.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("catalog: watching", slog.String("root", root))

	run := func() {
		rep, err := s.Sync(ctx)
		if err != nil {
			logger.Warn("catalog: sync failed", slog.String("error", err.Error()))
			return
		}
		if onSync != nil {
			onSync(rep)
		}
	}
	run()

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("catalog: watcher stopped")
			return nil

		case <-fire:
			run()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("catalog: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}
			if !isTemplate(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				logger.Debug("catalog: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
