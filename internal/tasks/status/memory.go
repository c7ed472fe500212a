package status

import (
	"context"
	"sync"
	"time"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

type entry struct {
	status    models.TaskStatus
	expiresAt time.Time
}

// MemoryStore keeps task status in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[id.ContentHash]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[id.ContentHash]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Claim(_ context.Context, hash id.ContentHash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(hash); ok {
		return false, nil
	}
	s.put(hash, models.Pending{})
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, hash id.ContentHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, hash)
	return nil
}

func (s *MemoryStore) Set(_ context.Context, hash id.ContentHash, status models.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(hash, status)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, hash id.ContentHash) (models.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live(hash); ok {
		return e.status, nil
	}
	return models.Pending{}, nil
}

// live returns the entry for hash, evicting it if expired. Callers hold mu.
func (s *MemoryStore) live(hash id.ContentHash) (entry, bool) {
	e, ok := s.entries[hash]
	if !ok {
		return entry{}, false
	}
	if s.ttl > 0 && !s.now().Before(e.expiresAt) {
		delete(s.entries, hash)
		return entry{}, false
	}
	return e, true
}

func (s *MemoryStore) put(hash id.ContentHash, status models.TaskStatus) {
	s.entries[hash] = entry{status: status, expiresAt: s.now().Add(s.ttl)}
}
