package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/pagecraft/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, workID string)

// Watch starts an fsnotify watcher on the works root and keeps the index in
// step with documents edited outside the application until ctx is
// cancelled. It calls cb (if non-nil) after each successful index mutation.
//
// Works are flat files, so only the root directory is watched. Rename
// events trigger a debounced reconciliation pass.
func Watch(ctx context.Context, db WorkIndex, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	notify := func(kind, id string) {
		if cb != nil {
			cb(kind, id)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			id, isWork := storage.IDFromPath(rel)
			if !isWork {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(id)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("work_id", id), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := IndexDocument(db, id, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("work_id", id), slog.String("error", idxErr.Error()))
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", slog.String("work_id", id), slog.String("op", kind))
				notify(kind, id)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteWork(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("work_id", id), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("work_id", id))
				notify(EventDeleted, id)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives as
				// a Create if it stays under the root.
				if delErr := db.DeleteWork(id); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("work_id", id), slog.String("error", delErr.Error()))
				} else {
					notify(EventDeleted, id)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a document on disk and indexes
// documents whose checksum differs from the index.
func reconcile(db WorkIndex, store storage.Provider, logger *slog.Logger, notify func(kind, id string)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.ID] = m.Checksum
	}

	for id := range checksums {
		if _, ok := disk[id]; ok {
			continue
		}
		if delErr := db.DeleteWork(id); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("work_id", id))
			notify(EventDeleted, id)
		}
	}

	for id, cs := range disk {
		if checksums[id] == cs {
			continue
		}
		data, readErr := store.Read(id)
		if readErr != nil {
			continue
		}
		if idxErr := IndexDocument(db, id, data); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("work_id", id))
			notify(EventCreated, id)
		}
	}
}
