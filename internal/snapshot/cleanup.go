package snapshot

import (
	"context"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/observability/metrics"
)

type StaleDeleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartCleanup removes snapshots older than maxAge every interval until ctx
// is done. It blocks; run it in its own goroutine.
func StartCleanup(ctx context.Context, repo StaleDeleter, clk clock.Clock, maxAge, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteOlderThan(ctx, clk.Now().Add(-maxAge))
			if err != nil {
				log.Errorf("snapshot cleanup failed: %v", err)
				continue
			}
			if deleted > 0 {
				metrics.SnapshotsPruned.Add(float64(deleted))
				log.Infof("snapshot cleanup: deleted %d stale snapshots", deleted)
			}
		}
	}
}
