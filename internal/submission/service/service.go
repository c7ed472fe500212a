// Package service implements the submission pipeline: idempotent submit,
// the cache-aside result read, single-hash redaction and the bulk backfill.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
	dErrors "blurifier/pkg/domain-errors"
	"blurifier/pkg/platform/sentinel"
	"blurifier/pkg/requestcontext"
)

var tracer = otel.Tracer("blurifier/internal/submission/service")

// Service owns the submission pipeline. The store is authoritative; cache
// and dispatcher failures degrade latency or freshness, never correctness.
type Service struct {
	store      Store
	cache      ResultCache
	dispatcher Dispatcher
	redactor   Redactor
	logger     *slog.Logger
	metrics    *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, cache ResultCache, dispatcher Dispatcher, redactor Redactor, opts ...Option) *Service {
	s := &Service{
		store:      store,
		cache:      cache,
		dispatcher: dispatcher,
		redactor:   redactor,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records content and enqueues its redaction the first time the
// content is seen. The hash is returned whenever the row is durable, even if
// the enqueue failed; the backfill pass picks such rows up.
func (s *Service) Submit(ctx context.Context, content string) (id.ContentHash, error) {
	ctx, span := tracer.Start(ctx, "submission.Submit")
	defer span.End()

	if content == "" {
		return "", dErrors.New(dErrors.CodeValidation, "content is required")
	}

	sub, created, err := s.store.GetOrCreate(ctx, content, requestcontext.Now(ctx))
	if err != nil {
		span.SetStatus(codes.Error, "store")
		return "", dErrors.Wrap(err, dErrors.CodeStorage, "failed to store submission")
	}
	span.SetAttributes(
		attribute.String("content_hash", sub.Hash.String()),
		attribute.Bool("created", created),
	)

	if !created || sub.IsProcessed() {
		s.metrics.incSubmission("deduplicated")
		return sub.Hash, nil
	}
	s.metrics.incSubmission("created")

	if err := s.dispatcher.Enqueue(ctx, sub.Hash); err != nil {
		s.metrics.incEnqueueFailure()
		s.logger.WarnContext(ctx, "submission stored but task not enqueued",
			"content_hash", sub.Hash,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	return sub.Hash, nil
}

// GetResult serves the cache-aside read. Only terminal success is cached.
func (s *Service) GetResult(ctx context.Context, hash id.ContentHash) (*models.Result, error) {
	ctx, span := tracer.Start(ctx, "submission.GetResult")
	defer span.End()
	span.SetAttributes(attribute.String("content_hash", hash.String()))

	if cached, ok := s.cachedResult(ctx, hash); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	sub, err := s.store.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		span.SetStatus(codes.Error, "store")
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load submission")
	}

	result := models.NewResult(sub, s.statusOf(ctx, sub))
	if result.IsTerminalSuccess() {
		if err := s.cache.Set(ctx, result); err != nil {
			s.logger.WarnContext(ctx, "failed to cache result", "content_hash", hash, "error", err)
		}
	}
	return result, nil
}

func (s *Service) cachedResult(ctx context.Context, hash id.ContentHash) (*models.Result, bool) {
	cached, ok, err := s.cache.Get(ctx, hash)
	switch {
	case err != nil:
		s.metrics.incCache("error")
		s.logger.WarnContext(ctx, "result cache read failed", "content_hash", hash, "error", err)
		return nil, false
	case !ok:
		s.metrics.incCache("miss")
		return nil, false
	default:
		s.metrics.incCache("hit")
		return cached, true
	}
}

// statusOf derives the status of sub. Processed content always wins over
// the task record, because the backfill path never dispatches a task.
func (s *Service) statusOf(ctx context.Context, sub *models.Submission) models.TaskStatus {
	if sub.IsProcessed() {
		return models.Success{}
	}
	status, err := s.dispatcher.Status(ctx, sub.Hash)
	if err != nil {
		s.logger.WarnContext(ctx, "task status unavailable", "content_hash", sub.Hash, "error", err)
		return models.Pending{}
	}
	if _, ok := status.(models.Success); ok {
		// The task finished but this read raced its store write.
		return models.Running{}
	}
	return status
}
