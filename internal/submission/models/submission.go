package models

import (
	"time"

	id "blurifier/pkg/domain"
	dErrors "blurifier/pkg/domain-errors"
)

// Submission is the single durable entity: one row per distinct content.
//
// Invariants:
//   - Hash is the content hash of OriginalContent and never changes
//   - OriginalContent is immutable after creation
//   - ProcessedContent is nil until redaction runs once; afterwards it is final
//   - IndexedAt non-nil implies ProcessedContent non-nil
//   - UpdatedAt advances on every mutation
type Submission struct {
	Hash             id.ContentHash
	OriginalContent  string
	ProcessedContent *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	IndexedAt        *time.Time
}

// NewSubmission builds an unprocessed submission for content.
func NewSubmission(content string, now time.Time) *Submission {
	return &Submission{
		Hash:            id.HashContent(content),
		OriginalContent: content,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Submission) IsProcessed() bool {
	return s.ProcessedContent != nil
}

func (s *Submission) IsIndexed() bool {
	return s.IndexedAt != nil
}

// NeedsIndexing reports whether the sweeper should push this row.
func (s *Submission) NeedsIndexing() bool {
	return s.IsProcessed() && !s.IsIndexed()
}

// ApplyProcessed records the redaction result. A row that is already
// processed keeps its first value.
func (s *Submission) ApplyProcessed(processed string, now time.Time) {
	if s.IsProcessed() {
		return
	}
	s.ProcessedContent = &processed
	s.UpdatedAt = now
}

// ApplyIndexed sets the indexing watermark. It refuses rows that have not
// been processed yet.
func (s *Submission) ApplyIndexed(now time.Time) error {
	if !s.IsProcessed() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot index an unprocessed submission")
	}
	s.IndexedAt = &now
	s.UpdatedAt = now
	return nil
}

// ClearIndexed drops the indexing watermark and reports whether one was set.
// UpdatedAt is left alone: the watermark tracks the search index, not the
// submission's content.
func (s *Submission) ClearIndexed() bool {
	if s.IndexedAt == nil {
		return false
	}
	s.IndexedAt = nil
	return true
}

// Clone returns a deep copy so stores never share pointers with callers.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	if s.ProcessedContent != nil {
		p := *s.ProcessedContent
		c.ProcessedContent = &p
	}
	if s.IndexedAt != nil {
		t := *s.IndexedAt
		c.IndexedAt = &t
	}
	return &c
}

// Update is one row of a bulk write. Nil fields are left untouched; a
// ProcessedContent never overwrites an existing value and IndexedAt never
// clears an existing watermark.
type Update struct {
	Hash             id.ContentHash
	ProcessedContent *string
	IndexedAt        *time.Time
	UpdatedAt        time.Time
}
