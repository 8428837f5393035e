package access

import (
	"context"
	"errors"

	id "cinregistry/pkg/domain"
	"cinregistry/pkg/platform/sentinel"
)

// Registry resolves user roles. Implementations may cache.
type Registry interface {
	RoleOf(ctx context.Context, userID id.UserID) (Role, bool, error)
}

// Invalidator is implemented by caching registries so role changes apply immediately.
type Invalidator interface {
	Invalidate(ctx context.Context, userID id.UserID) error
}

// Store persists role assignments.
type Store interface {
	Get(ctx context.Context, userID id.UserID) (*Assignment, error)
	Upsert(ctx context.Context, a Assignment) error
	List(ctx context.Context) ([]Assignment, error)
}

// StoreRegistry reads roles straight from the store.
type StoreRegistry struct {
	store Store
}

func NewStoreRegistry(store Store) *StoreRegistry {
	return &StoreRegistry{store: store}
}

func (r *StoreRegistry) RoleOf(ctx context.Context, userID id.UserID) (Role, bool, error) {
	a, err := r.store.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return a.Role, true, nil
}
