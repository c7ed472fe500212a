package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"blurifier/internal/submission/models"
	dErrors "blurifier/pkg/domain-errors"
)

var tracer = otel.Tracer("blurifier/internal/tasks")

// RunnerConfig bounds task execution.
type RunnerConfig struct {
	TimeLimit    time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Runner executes a delivered task: it marks the task running, calls the
// processor under a per-attempt time limit, retries failed attempts and
// records the terminal status.
type Runner struct {
	processor Processor
	statuses  StatusStore
	cfg       RunnerConfig
	logger    *slog.Logger
	metrics   *Metrics
}

type RunnerOption func(*Runner)

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithRunnerMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

func NewRunner(processor Processor, statuses StatusStore, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	r := &Runner{
		processor: processor,
		statuses:  statuses,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes task. It returns an error only when ctx ends before the task
// reaches a terminal state; the caller must then leave the delivery
// unacknowledged so the queue redelivers it.
func (r *Runner) Run(ctx context.Context, task Task) error {
	ctx, span := tracer.Start(ctx, "tasks.Run")
	defer span.End()
	span.SetAttributes(attribute.String("content_hash", task.Hash.String()))

	start := time.Now()
	r.setStatus(ctx, task, models.Running{})

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		lastErr = r.attempt(ctx, task)
		if lastErr == nil {
			r.setStatus(ctx, task, models.Success{})
			r.metrics.observeOutcome(string(models.TaskStateSuccess), time.Since(start))
			return nil
		}
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "interrupted")
			return ctx.Err()
		}
		if dErrors.HasCode(lastErr, dErrors.CodeNotFound) || attempt == r.cfg.MaxAttempts {
			break
		}

		r.metrics.incRetry()
		r.logger.WarnContext(ctx, "task attempt failed, retrying",
			"content_hash", task.Hash,
			"attempt", attempt,
			"error", lastErr,
		)
		if err := sleep(ctx, r.cfg.RetryBackoff*time.Duration(attempt)); err != nil {
			return err
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "task failed")
	r.logger.ErrorContext(ctx, "task failed",
		"content_hash", task.Hash,
		"error", lastErr,
	)
	r.setStatus(ctx, task, models.Failure{Detail: lastErr.Error()})
	r.metrics.observeOutcome(string(models.TaskStateFailure), time.Since(start))
	return nil
}

func (r *Runner) attempt(ctx context.Context, task Task) error {
	attemptCtx := ctx
	if r.cfg.TimeLimit > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.TimeLimit)
		defer cancel()
	}
	_, err := r.processor.Process(attemptCtx, task.Hash)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "task exceeded its time limit")
	}
	return err
}

// setStatus is best effort; the store row stays authoritative.
func (r *Runner) setStatus(ctx context.Context, task Task, status models.TaskStatus) {
	if err := r.statuses.Set(context.WithoutCancel(ctx), task.Hash, status); err != nil {
		r.logger.WarnContext(ctx, "failed to record task status",
			"content_hash", task.Hash,
			"state", status.State(),
			"error", err,
		)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
