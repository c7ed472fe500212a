package service

import (
	"context"
	"time"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

// Store is the durable submission table.
type Store interface {
	FindByHash(ctx context.Context, hash id.ContentHash) (*models.Submission, error)
	GetOrCreate(ctx context.Context, content string, now time.Time) (*models.Submission, bool, error)
	SaveProcessed(ctx context.Context, hash id.ContentHash, processed string, now time.Time) error
	ListUnprocessed(ctx context.Context, limit int) ([]*models.Submission, error)
	BulkUpdate(ctx context.Context, updates []models.Update) error
}

// ResultCache fronts the read path. Errors are treated as misses.
type ResultCache interface {
	Get(ctx context.Context, hash id.ContentHash) (*models.Result, bool, error)
	Set(ctx context.Context, r *models.Result) error
}

// Dispatcher enqueues redaction tasks and reports their live status.
type Dispatcher interface {
	Enqueue(ctx context.Context, hash id.ContentHash) error
	Status(ctx context.Context, hash id.ContentHash) (models.TaskStatus, error)
}

// Redactor is the pure text transformation.
type Redactor interface {
	Redact(text string) string
}
