package ledger

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/mdstrip/internal/checksum"
	"github.com/starford/mdstrip/internal/storage"
)

// Event kinds reported to an EventCallback.
const (
	EventRewritten = "rewritten"
	EventUnchanged = "unchanged"
	EventDeleted   = "deleted"
)

// EventCallback is called after a watcher-driven change.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the content root and rewrites
// documents as they change until ctx is cancelled. It calls cb (if non-nil)
// after each processed event.
//
// A file whose content already matches the last written output is ignored,
// so the watcher's own writes do not trigger another pass. New directories
// are added to the watch list; renames trigger a reconciliation pass.
func Watch(ctx context.Context, db Ledger, store storage.Provider, proc Processor, logger *slog.Logger, cb EventCallback) error {
	root := store.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	emit := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
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
			reconcile(ctx, db, store, proc, logger, emit)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if strings.HasPrefix(info.Name(), ".") {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					processNewDir(ctx, db, store, proc, absPath, logger, emit)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if kind, ok := processIfChanged(ctx, db, store, proc, rel, logger); ok {
					emit(kind, rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteDocument(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				emit(EventDeleted, rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old name only; the new one arrives
				// as a Create if it stays inside a watched directory.
				if delErr := db.DeleteDocument(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					emit(EventDeleted, rel)
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

// processIfChanged rewrites rel unless its content equals the last output
// recorded in the ledger. ok is false when nothing was processed.
func processIfChanged(ctx context.Context, db Ledger, store storage.Provider, proc Processor, rel string, logger *slog.Logger) (kind string, ok bool) {
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	prev, err := db.GetChecksumOut(rel)
	if err != nil {
		logger.Warn("watcher: checksum lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	if prev != "" && prev == checksum.Sum(data) {
		return "", false
	}
	changed, err := proc.ProcessFile(ctx, rel, "")
	if err != nil {
		logger.Warn("watcher: rewrite failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	if changed {
		logger.Debug("watcher: rewritten", slog.String("path", rel))
		return EventRewritten, true
	}
	return EventUnchanged, true
}

// reconcile removes ledger rows without a file on disk and processes
// files whose content differs from the recorded output.
func reconcile(ctx context.Context, db Ledger, store storage.Provider, proc Processor, logger *slog.Logger, emit func(kind, path string)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteDocument(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				emit(EventDeleted, p)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if kind, ok := processIfChanged(ctx, db, store, proc, p, logger); ok {
			logger.Debug("reconcile: processed", slog.String("path", p))
			emit(kind, p)
		}
	}
}

// processNewDir handles .md files already present in a newly created directory.
func processNewDir(ctx context.Context, db Ledger, store storage.Provider, proc Processor, dirPath string, logger *slog.Logger, emit func(kind, path string)) {
	root := store.Root()
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if kind, ok := processIfChanged(ctx, db, store, proc, rel, logger); ok {
			logger.Debug("watcher: processed from new dir", slog.String("path", rel))
			emit(kind, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
