// Package sweeper removes texts older than the retention horizon. It talks
// to the rest of the system only through the storage backend, so a restarted
// sweeper resumes correctly with no state of its own.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pastrami/internal/storage"
)

const defaultBatch = 256

// Start launches a background loop that sweeps expired texts every interval.
// It returns immediately; the loop stops when ctx is cancelled.
func Start(ctx context.Context, store storage.Store, horizon, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepOnce(ctx, store, horizon, logger)
			}
		}
	}()
}

func sweepOnce(ctx context.Context, store storage.Store, horizon time.Duration, logger *slog.Logger) {
	c, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	removed, err := Sweep(c, store, time.Now().Add(-horizon), defaultBatch)
	if err != nil {
		if logger != nil {
			logger.Error("sweep error", "error", err, "removed", removed)
		}
		return
	}
	if removed > 0 && logger != nil {
		logger.Info("swept expired texts", "count", removed)
	}
}

// Sweep deletes all texts created before cutoff, draining the backend in
// batches of at most batch ids so no scan or lock is held for long. It
// returns the number of texts removed. Deleting an id already removed by a
// concurrent lazy delete is a no-op.
func Sweep(ctx context.Context, store storage.Store, cutoff time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = defaultBatch
	}
	var removed int
	for {
		ids, err := store.ListExpired(ctx, cutoff, batch)
		if err != nil {
			return removed, fmt.Errorf("list expired: %w", err)
		}
		if len(ids) == 0 {
			return removed, nil
		}
		for _, id := range ids {
			if err := store.Delete(ctx, id); err != nil {
				return removed, fmt.Errorf("delete expired text %s: %w", id, err)
			}
			removed++
		}
		if len(ids) < batch {
			return removed, nil
		}
	}
}
