package infraction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mimir/pkg/platform/sentinel"
)

// InMemoryStore keeps records in insertion order behind an RWMutex. Reads
// never block each other; a write holds the lock only for the append.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
	clock   func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{clock: time.Now}
}

// SetClock injects the timestamp source, for tests.
func (s *InMemoryStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *InMemoryStore) Insert(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt = s.clock().UTC()
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("find %s: %w", id, sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindDuplicate(_ context.Context, f Filter) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if f.Matches(rec) {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("find duplicate: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Find(_ context.Context, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Record, 0)
	for _, rec := range s.records {
		if f.Matches(rec) {
			matched = append(matched, rec)
		}
	}

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []Record{}, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *InMemoryStore) Count(_ context.Context, f Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, rec := range s.records {
		if f.Matches(rec) {
			n++
		}
	}
	return n, nil
}
