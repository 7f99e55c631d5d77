package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner removes expired entries.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Janitor periodically removes expired cache entries
type Janitor struct {
	cache    Cleaner
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
}

// NewJanitor creates a new cleanup worker
func NewJanitor(cache Cleaner, logger *slog.Logger, interval time.Duration) *Janitor {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		cache:    cache,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the cleanup loop until ctx is canceled or Stop is called
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started", "interval", j.interval)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped")
			return
		case <-j.done:
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			j.cleanup(ctx)
		}
	}
}

// Stop gracefully shuts down the janitor. It must be called at most once.
func (j *Janitor) Stop() {
	close(j.done)
}

func (j *Janitor) cleanup(ctx context.Context) {
	deleted, err := j.cache.CleanupExpired(ctx)
	if err != nil {
		j.logger.Error("failed to delete expired cache entries", "error", err)
		return
	}
	if deleted > 0 {
		j.logger.Info("deleted expired cache entries", "count", deleted)
	}
}
