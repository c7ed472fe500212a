package tasks

import (
	"context"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

// Publisher hands a task to the queue transport.
type Publisher interface {
	Publish(ctx context.Context, task Task) error
}

// StatusStore records task lifecycle per content hash.
//
// Claim reserves the key for a new task and reports false if a task for the
// key is already known. Release drops a claim whose publish failed. Get
// returns Pending when nothing is recorded.
type StatusStore interface {
	Claim(ctx context.Context, hash id.ContentHash) (bool, error)
	Release(ctx context.Context, hash id.ContentHash) error
	Set(ctx context.Context, hash id.ContentHash, status models.TaskStatus) error
	Get(ctx context.Context, hash id.ContentHash) (models.TaskStatus, error)
}

// Processor performs the redaction for one hash.
type Processor interface {
	Process(ctx context.Context, hash id.ContentHash) (string, error)
}
