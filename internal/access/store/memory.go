package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"cinregistry/internal/access"
	id "cinregistry/pkg/domain"
	"cinregistry/pkg/platform/sentinel"
)

// InMemoryRoleStore keeps role assignments in a map.
type InMemoryRoleStore struct {
	mu    sync.RWMutex
	roles map[id.UserID]access.Assignment
}

func NewInMemoryRoleStore() *InMemoryRoleStore {
	return &InMemoryRoleStore{roles: make(map[id.UserID]access.Assignment)}
}

func (s *InMemoryRoleStore) Get(_ context.Context, userID id.UserID) (*access.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.roles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (s *InMemoryRoleStore) Upsert(_ context.Context, a access.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[a.UserID] = a
	return nil
}

// List returns assignments ordered by user ID for stable output.
func (s *InMemoryRoleStore) List(_ context.Context) ([]access.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]access.Assignment, 0, len(s.roles))
	for _, a := range s.roles {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b access.Assignment) int {
		return strings.Compare(a.UserID.String(), b.UserID.String())
	})
	return out, nil
}
