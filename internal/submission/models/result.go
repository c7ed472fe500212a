package models

import (
	"time"

	id "blurifier/pkg/domain"
)

// Result is the read model served by the "get result" path and the value
// stored in the result cache.
type Result struct {
	Hash        id.ContentHash `json:"content_hash"`
	Status      TaskState      `json:"status"`
	Original    string         `json:"original"`
	Processed   *string        `json:"processed,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ProcessedAt time.Time      `json:"processed_at"`
	Detail      string         `json:"detail"`
}

// IsTerminalSuccess reports whether the result may be cached.
func (r *Result) IsTerminalSuccess() bool {
	return r.Status == TaskStateSuccess && r.Processed != nil
}

// NewResult projects a submission and its task status into a Result.
func NewResult(s *Submission, status TaskStatus) *Result {
	r := &Result{
		Hash:        s.Hash,
		Status:      status.State(),
		Original:    s.OriginalContent,
		CreatedAt:   s.CreatedAt,
		ProcessedAt: s.UpdatedAt,
		Detail:      DetailOf(status),
	}
	if s.ProcessedContent != nil {
		p := *s.ProcessedContent
		r.Processed = &p
	}
	return r
}
