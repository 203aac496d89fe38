package ledger

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/starford/mdstrip/internal/models"
	"github.com/starford/mdstrip/internal/storage"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent file processing when none is configured.
const DefaultWorkers = 4

// Sync walks the content root and brings every document up to date:
//   - files whose checksum matches the last written output are skipped
//   - other files are handed to proc, at most workers at a time
//   - ledger rows whose file is gone are deleted
//
// A failing file is logged and counted; it does not stop the batch.
func Sync(ctx context.Context, db Ledger, store storage.Provider, proc Processor, workers int, logger *slog.Logger) (*models.Run, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	metas, err := store.List("")
	if err != nil {
		return nil, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}
	run, err := db.BeginRun()
	if err != nil {
		return nil, err
	}
	logger.Info("sync: started", slog.String("run_id", run.ID), slog.Int("files", len(metas)))

	var rewritten, skipped, failed atomic.Int64
	disk := make(map[string]struct{}, len(metas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			skipped.Add(1)
			continue
		}

		path := m.Path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			changed, err := proc.ProcessFile(gctx, path, run.ID)
			if err != nil {
				failed.Add(1)
				logger.Warn("sync: rewrite failed", slog.String("path", path), slog.String("error", err.Error()))
				return nil
			}
			if changed {
				rewritten.Add(1)
				logger.Debug("sync: rewritten", slog.String("path", path))
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	run.Files = len(metas)
	run.Rewritten = int(rewritten.Load())
	run.Skipped = int(skipped.Load())
	run.Failed = int(failed.Load())
	if err := db.FinishRun(run); err != nil {
		return run, err
	}
	logger.Info("sync: finished",
		slog.String("run_id", run.ID),
		slog.Int("rewritten", run.Rewritten),
		slog.Int("skipped", run.Skipped),
		slog.Int("failed", run.Failed))

	return run, waitErr
}
