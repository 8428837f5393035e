package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	audit "cinregistry/pkg/platform/audit"
)

// InMemoryStore keeps entries in append order. It implements audit.Store and audit.Outbox.
type InMemoryStore struct {
	mu        sync.RWMutex
	entries   []audit.Entry
	seen      map[uuid.UUID]struct{}
	published map[uuid.UUID]struct{}
	failWith  error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		seen:      make(map[uuid.UUID]struct{}),
		published: make(map[uuid.UUID]struct{}),
	}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.seen = make(map[uuid.UUID]struct{})
	s.published = make(map[uuid.UUID]struct{})
}

// FailWith makes every subsequent Append return err until called with nil.
func (s *InMemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Append is idempotent on entry ID so retried writes never duplicate.
func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.seen[entry.ID]; ok {
		return nil
	}
	s.seen[entry.ID] = struct{}{}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByRecord(_ context.Context, tableName, recordID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.entries {
		if e.TableName == tableName && e.Record() == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns the most recent entries, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := max(len(s.entries)-limit, 0)
	out := slices.Clone(s.entries[start:])
	slices.Reverse(out)
	return out, nil
}

// All returns every entry in append order.
func (s *InMemoryStore) All() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.entries {
		if len(out) == limit {
			break
		}
		if _, ok := s.published[e.ID]; !ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range ids {
		s.published[entryID] = struct{}{}
	}
	return nil
}
