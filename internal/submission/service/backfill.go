package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Backfill runs ProcessAllUnprocessed on a fixed interval. It redacts rows
// whose task was never enqueued or never finished.
type Backfill struct {
	service   *Service
	interval  time.Duration
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewBackfill(svc *Service, interval time.Duration, batchSize int, logger *slog.Logger) *Backfill {
	return &Backfill{
		service:   svc,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run blocks until ctx is done or Stop is called.
func (b *Backfill) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
	defer cancel()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.InfoContext(ctx, "backfill loop started", "interval", b.interval.String(), "batch_size", b.batchSize)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("backfill loop stopped")
			return nil
		case <-ticker.C:
			if _, err := b.service.ProcessAllUnprocessed(ctx, b.batchSize); err != nil && ctx.Err() == nil {
				b.logger.ErrorContext(ctx, "backfill pass failed", "error", err)
			}
		}
	}
}

// Stop ends a running loop.
func (b *Backfill) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
}
