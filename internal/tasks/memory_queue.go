package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned when the in-process buffer cannot take a task.
var ErrQueueFull = errors.New("task queue is full")

// MemoryQueue is the in-process transport used when no broker is
// configured. A hash that is already queued or running is not queued again,
// so at most one execution per key is ever active.
type MemoryQueue struct {
	tasks   chan Task
	workers int
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryQueue(buffer, workers int, logger *slog.Logger) *MemoryQueue {
	if buffer < 1 {
		buffer = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &MemoryQueue{
		tasks:   make(chan Task, buffer),
		workers: workers,
		logger:  logger,
		active:  make(map[string]struct{}),
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.active[task.Key()]; ok {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.tasks <- task:
		q.active[task.Key()] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

// Run drains the queue with the configured number of workers until ctx is
// done. Tasks still buffered at shutdown are dropped; the backfill pass
// redacts their rows later.
func (q *MemoryQueue) Run(ctx context.Context, runner *Runner) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case task := <-q.tasks:
					if err := runner.Run(ctx, task); err != nil {
						q.logger.InfoContext(ctx, "task interrupted by shutdown", "content_hash", task.Hash)
					}
					q.done(task)
				}
			}
		})
	}
	return g.Wait()
}

// Pending reports the number of queued or running tasks.
func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

func (q *MemoryQueue) done(task Task) {
	q.mu.Lock()
	delete(q.active, task.Key())
	q.mu.Unlock()
}
