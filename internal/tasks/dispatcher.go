package tasks

import (
	"context"
	"log/slog"
	"time"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
	dErrors "blurifier/pkg/domain-errors"
)

// Dispatcher enqueues redaction tasks with per-hash deduplication.
type Dispatcher struct {
	publisher Publisher
	statuses  StatusStore
	logger    *slog.Logger
	metrics   *Metrics
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithDispatcherMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(publisher Publisher, statuses StatusStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		statuses:  statuses,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue publishes a task for hash unless one is already claimed. A publish
// failure releases the claim so a later enqueue can retry.
func (d *Dispatcher) Enqueue(ctx context.Context, hash id.ContentHash) error {
	claimed, err := d.statuses.Claim(ctx, hash)
	if err != nil {
		d.metrics.incEnqueueFailure()
		return dErrors.Wrap(err, dErrors.CodeQueue, "failed to claim task")
	}
	if !claimed {
		d.metrics.incDeduplicated()
		d.logger.DebugContext(ctx, "task already claimed", "content_hash", hash)
		return nil
	}

	task := Task{Hash: hash, EnqueuedAt: time.Now().UTC()}
	if err := d.publisher.Publish(ctx, task); err != nil {
		d.metrics.incEnqueueFailure()
		if relErr := d.statuses.Release(ctx, hash); relErr != nil {
			d.logger.WarnContext(ctx, "failed to release task claim", "content_hash", hash, "error", relErr)
		}
		return dErrors.Wrap(err, dErrors.CodeQueue, "failed to enqueue task")
	}
	d.metrics.incEnqueued()
	return nil
}

// Status returns the live task status for hash.
func (d *Dispatcher) Status(ctx context.Context, hash id.ContentHash) (models.TaskStatus, error) {
	status, err := d.statuses.Get(ctx, hash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeQueue, "failed to read task status")
	}
	return status, nil
}
