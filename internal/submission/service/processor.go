package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
	dErrors "blurifier/pkg/domain-errors"
	"blurifier/pkg/platform/sentinel"
	"blurifier/pkg/requestcontext"
)

// Process redacts one submission. A row that is already processed returns
// its stored value, so redelivered tasks are no-ops.
func (s *Service) Process(ctx context.Context, hash id.ContentHash) (string, error) {
	ctx, span := tracer.Start(ctx, "submission.Process")
	defer span.End()
	span.SetAttributes(attribute.String("content_hash", hash.String()))

	sub, err := s.store.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "no submission for hash "+hash.String())
		}
		span.SetStatus(codes.Error, "store")
		return "", dErrors.Wrap(err, dErrors.CodeStorage, "failed to load submission")
	}
	if sub.IsProcessed() {
		s.metrics.incProcessed("already_processed")
		return *sub.ProcessedContent, nil
	}

	processed := s.redactor.Redact(sub.OriginalContent)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.store.SaveProcessed(ctx, hash, processed, requestcontext.Now(ctx)); err != nil {
		span.SetStatus(codes.Error, "store")
		return "", dErrors.Wrap(err, dErrors.CodeStorage, "failed to save processed content")
	}
	s.metrics.incProcessed("redacted")
	return processed, nil
}

// BackfillResult summarizes one ProcessAllUnprocessed pass.
type BackfillResult struct {
	Total    int
	Duration time.Duration
}

// ProcessAllUnprocessed redacts up to limit rows that have no processed
// content and writes them back in one batch. It may run alongside Process:
// both produce identical output and the store keeps the first value.
func (s *Service) ProcessAllUnprocessed(ctx context.Context, limit int) (BackfillResult, error) {
	ctx, span := tracer.Start(ctx, "submission.ProcessAllUnprocessed")
	defer span.End()
	start := time.Now()

	rows, err := s.store.ListUnprocessed(ctx, limit)
	if err != nil {
		span.SetStatus(codes.Error, "store")
		return BackfillResult{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list unprocessed submissions")
	}
	s.logger.InfoContext(ctx, "backfill started", "total", len(rows))

	now := requestcontext.Now(ctx)
	updates := make([]models.Update, 0, len(rows))
	for _, sub := range rows {
		processed := s.redactor.Redact(sub.OriginalContent)
		updates = append(updates, models.Update{
			Hash:             sub.Hash,
			ProcessedContent: &processed,
			UpdatedAt:        now,
		})
	}
	if err := s.store.BulkUpdate(ctx, updates); err != nil {
		span.SetStatus(codes.Error, "store")
		return BackfillResult{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to write backfill batch")
	}

	res := BackfillResult{Total: len(updates), Duration: time.Since(start)}
	span.SetAttributes(attribute.Int("processed", res.Total))
	s.metrics.observeBackfill(res.Total, res.Duration.Seconds())
	s.logger.InfoContext(ctx, "backfill finished",
		"processed", res.Total,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
