package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/logger"
)

const purgeTimeout = 2 * time.Minute

// GarbageCollector purges dead-lettered jobs once they outlive retention.
// Failed generation and lock jobs stay inspectable in the DLQ until then.
type GarbageCollector struct {
	dlqPurger DLQPurger
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger
}

// NewGarbageCollector creates a collector purging through purger every interval
func NewGarbageCollector(purger DLQPurger, interval time.Duration, retention time.Duration, log *zap.Logger) *GarbageCollector {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &GarbageCollector{
		dlqPurger: purger,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Start purges once and then every interval until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		if _, err := gc.Collect(ctx); err != nil && ctx.Err() == nil {
			gc.log.Warn("dlq_gc_failed", zap.String("error", logger.SanitizeError(err)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Collect runs a single purge and returns how many jobs were dropped.
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	if gc.dlqPurger == nil {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return n, fmt.Errorf("DLQ purge: %w", err)
	}
	if n > 0 {
		gc.log.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return n, nil
}
