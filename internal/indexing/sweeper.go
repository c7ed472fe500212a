// Package indexing pushes redacted submissions into the search index and
// advances their indexed_at watermark.
package indexing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"blurifier/internal/search/index"
	"blurifier/internal/submission/models"
	dErrors "blurifier/pkg/domain-errors"
	"blurifier/pkg/requestcontext"
)

var tracer = otel.Tracer("blurifier/internal/indexing")

// Store is the slice of the submission store the sweeper needs.
type Store interface {
	ListUnindexed(ctx context.Context, limit int) ([]*models.Submission, error)
	BulkUpdate(ctx context.Context, updates []models.Update) error
	ResetIndexed(ctx context.Context) (int64, error)
}

// Index receives documents keyed by content hash. Upsert must replace any
// earlier document for the same hash. TakeCreated reports, once, that
// EnsureIndex built an empty index, which invalidates every stored watermark.
type Index interface {
	EnsureIndex(ctx context.Context) error
	TakeCreated() bool
	Upsert(ctx context.Context, doc index.Document) error
}

// Result summarizes one sweep pass.
type Result struct {
	Total    int
	Indexed  int
	Failed   int
	Duration time.Duration
}

// Sweeper finds processed but unindexed submissions, indexes each one and
// records the watermark for those that succeeded in a single batch write.
type Sweeper struct {
	store     Store
	index     Index
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics

	mu     sync.Mutex
	cancel context.CancelFunc

	resetMu      sync.Mutex
	resetPending bool
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func New(store Store, idx Index, interval time.Duration, batchSize int, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:     store,
		index:     idx,
		interval:  interval,
		batchSize: batchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs one pass over at most batchSize eligible rows. A document that
// fails to index is skipped and stays eligible for the next pass; only a
// store failure or an unusable index fails the pass as a whole. When the
// index turns out to be newly created, every watermark is cleared first so
// the whole corpus is indexed again over the following passes.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "indexing.Sweep")
	defer span.End()
	start := time.Now()
	ctx = requestcontext.WithTime(ctx, start)

	if err := s.index.EnsureIndex(ctx); err != nil {
		span.SetStatus(codes.Error, "index")
		res := Result{Duration: time.Since(start)}
		s.metrics.observePass(res)
		return res, dErrors.Wrap(err, dErrors.CodeIndex, "search index unavailable")
	}
	if err := s.resetAfterRebuild(ctx); err != nil {
		span.SetStatus(codes.Error, "store")
		return Result{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to reset indexing watermarks")
	}

	rows, err := s.store.ListUnindexed(ctx, s.batchSize)
	if err != nil {
		span.SetStatus(codes.Error, "store")
		return Result{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list unindexed submissions")
	}
	res := Result{Total: len(rows)}
	if len(rows) == 0 {
		res.Duration = time.Since(start)
		s.metrics.observePass(res)
		return res, nil
	}

	now := requestcontext.Now(ctx)
	updates := make([]models.Update, 0, len(rows))
	for _, sub := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		doc := index.Document{
			ContentHash:   sub.Hash,
			OriginalText:  sub.OriginalContent,
			ProcessedText: sub.ProcessedContent,
		}
		if err := s.index.Upsert(ctx, doc); err != nil {
			res.Failed++
			s.logger.WarnContext(ctx, "failed to index submission",
				"content_hash", sub.Hash,
				"error", err,
			)
			continue
		}
		indexedAt := now
		updates = append(updates, models.Update{
			Hash:      sub.Hash,
			IndexedAt: &indexedAt,
			UpdatedAt: now,
		})
	}

	if err := s.store.BulkUpdate(ctx, updates); err != nil {
		span.SetStatus(codes.Error, "store")
		return res, dErrors.Wrap(err, dErrors.CodeStorage, "failed to write indexing watermarks")
	}
	res.Indexed = len(updates)
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("total", res.Total),
		attribute.Int("indexed", res.Indexed),
		attribute.Int("failed", res.Failed),
	)
	s.metrics.observePass(res)
	s.logger.InfoContext(ctx, "sweep finished",
		"total", res.Total,
		"indexed", res.Indexed,
		"failed", res.Failed,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// resetAfterRebuild clears all watermarks once the index reports it was
// created empty. A failed reset is retried on the next pass.
func (s *Sweeper) resetAfterRebuild(ctx context.Context) error {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	if s.index.TakeCreated() {
		s.resetPending = true
	}
	if !s.resetPending {
		return nil
	}
	n, err := s.store.ResetIndexed(ctx)
	if err != nil {
		return err
	}
	s.resetPending = false
	s.logger.InfoContext(ctx, "search index created empty, re-indexing processed submissions", "cleared", n)
	return nil
}

// Run sweeps on every tick until ctx is done or Stop is called. A failed
// pass is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sweeper started", "interval", s.interval.String(), "batch_size", s.batchSize)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}

// Stop ends a running loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
