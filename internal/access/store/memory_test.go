package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinregistry/internal/access"
	id "cinregistry/pkg/domain"
	"cinregistry/pkg/platform/sentinel"
)

func TestInMemoryRoleStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryRoleStore()
	user := id.NewUserID()

	_, err := s.Get(ctx, user)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Upsert(ctx, access.Assignment{UserID: user, Role: access.RoleViewer, UpdatedAt: time.Now()}))
	require.NoError(t, s.Upsert(ctx, access.Assignment{UserID: user, Role: access.RoleStaff, UpdatedAt: time.Now()}))

	got, err := s.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, access.RoleStaff, got.Role)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
