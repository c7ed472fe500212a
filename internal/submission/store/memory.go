package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
	dErrors "blurifier/pkg/domain-errors"
)

// InMemoryStore is a process-local store used by tests and single-process
// deployments. Every read and write copies rows so callers never alias the
// stored state.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[id.ContentHash]*models.Submission
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rows: make(map[id.ContentHash]*models.Submission)}
}

func (s *InMemoryStore) FindByHash(_ context.Context, hash id.ContentHash) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.rows[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return sub.Clone(), nil
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, content string, now time.Time) (*models.Submission, bool, error) {
	sub := models.NewSubmission(content, now)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rows[sub.Hash]; ok {
		return existing.Clone(), false, nil
	}
	s.rows[sub.Hash] = sub
	return sub.Clone(), true, nil
}

func (s *InMemoryStore) SaveProcessed(_ context.Context, hash id.ContentHash, processed string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[hash]
	if !ok {
		return ErrNotFound
	}
	sub.ApplyProcessed(processed, now)
	return nil
}

func (s *InMemoryStore) ListUnindexed(_ context.Context, limit int) ([]*models.Submission, error) {
	return s.list(limit, (*models.Submission).NeedsIndexing, func(sub *models.Submission) time.Time {
		return sub.UpdatedAt
	}), nil
}

func (s *InMemoryStore) ListUnprocessed(_ context.Context, limit int) ([]*models.Submission, error) {
	return s.list(limit, func(sub *models.Submission) bool {
		return !sub.IsProcessed()
	}, func(sub *models.Submission) time.Time {
		return sub.CreatedAt
	}), nil
}

// BulkUpdate validates the whole batch before mutating anything so a bad
// row leaves the store untouched, matching the SQL transaction.
func (s *InMemoryStore) BulkUpdate(_ context.Context, updates []models.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[id.ContentHash]*models.Submission, len(updates))
	for _, u := range updates {
		sub, ok := staged[u.Hash]
		if !ok {
			current, exists := s.rows[u.Hash]
			if !exists {
				continue
			}
			sub = current.Clone()
			staged[u.Hash] = sub
		}
		if u.ProcessedContent != nil && sub.ProcessedContent == nil {
			p := *u.ProcessedContent
			sub.ProcessedContent = &p
		}
		if u.IndexedAt != nil {
			if sub.ProcessedContent == nil {
				return dErrors.New(dErrors.CodeInvariantViolation, "cannot index an unprocessed submission")
			}
			t := *u.IndexedAt
			sub.IndexedAt = &t
		}
		sub.UpdatedAt = u.UpdatedAt
	}
	for hash, sub := range staged {
		s.rows[hash] = sub
	}
	return nil
}

func (s *InMemoryStore) ResetIndexed(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sub := range s.rows {
		if sub.ClearIndexed() {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) list(limit int, keep func(*models.Submission) bool, orderBy func(*models.Submission) time.Time) []*models.Submission {
	if limit <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Submission
	for _, sub := range s.rows {
		if keep(sub) {
			out = append(out, sub.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := orderBy(out[i]), orderBy(out[j])
		if ti.Equal(tj) {
			return out[i].Hash < out[j].Hash
		}
		return ti.Before(tj)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
