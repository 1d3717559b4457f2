package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/repository"
)

const cleanupInterval = 24 * time.Hour

// StartCleanup runs a daily goroutine that deletes persisted logs older than
// retention until done is closed.
func StartCleanup(logs repository.LogRepository, retention time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				PruneOnce(logs, retention, time.Now())
			case <-done:
				return
			}
		}
	}()
}

// PruneOnce deletes logs older than now minus retention.
func PruneOnce(logs repository.LogRepository, retention time.Duration, now time.Time) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := logs.DeleteLogsBefore(ctx, now.UTC().Add(-retention))
	if err != nil {
		slog.Warn("log cleanup failed", "error", err)
		return 0
	}
	if deleted > 0 {
		slog.Info("log cleanup completed", "deleted", deleted)
	}
	return deleted
}
