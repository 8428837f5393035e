package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
)

func TestAuthorize(t *testing.T) {
	admin, staff, otherStaff, viewer, stranger := id.NewUserID(), id.NewUserID(), id.NewUserID(), id.NewUserID(), id.NewUserID()
	roles := RoleTable{
		admin:      RoleAdmin,
		staff:      RoleStaff,
		otherStaff: RoleStaff,
		viewer:     RoleViewer,
	}

	tests := []struct {
		name       string
		actor      id.UserID
		capability Capability
		owner      id.UserID
		want       Decision
	}{
		{"admin reads", admin, CapRead, staff, allow()},
		{"admin mutates any", admin, CapMutateAny, staff, allow()},
		{"admin mutates own on someone else's record", admin, CapMutateOwn, staff, allow()},
		{"admin manages roles", admin, CapManageRoles, id.UserID{}, allow()},
		{"staff reads", staff, CapRead, otherStaff, allow()},
		{"staff mutates own record", staff, CapMutateOwn, staff, allow()},
		{"staff mutating another staff's record", staff, CapMutateOwn, otherStaff, deny(ReasonNotOwner)},
		{"staff cannot mutate any", staff, CapMutateAny, staff, deny(ReasonRoleInsufficient)},
		{"staff cannot manage roles", staff, CapManageRoles, id.UserID{}, deny(ReasonRoleInsufficient)},
		{"viewer reads", viewer, CapRead, staff, allow()},
		{"viewer cannot mutate own", viewer, CapMutateOwn, viewer, deny(ReasonRoleInsufficient)},
		{"unknown actor", stranger, CapRead, staff, deny(ReasonUnknownActor)},
		{"nil actor", id.UserID{}, CapRead, staff, deny(ReasonUnknownActor)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(roles, tt.actor, tt.capability, tt.owner))
		})
	}
}

func TestAuthorizeIsPure(t *testing.T) {
	staff := id.NewUserID()
	roles := RoleTable{staff: RoleStaff}
	before := len(roles)

	for range 3 {
		Authorize(roles, staff, CapMutateOwn, id.NewUserID())
	}
	assert.Len(t, roles, before)
	assert.Equal(t, RoleStaff, roles[staff])
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, allow().Err())

	err := deny(ReasonNotOwner).Err()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	assert.Equal(t, "not-owner", dErrors.ReasonOf(err))
}

type stubRegistry struct {
	roles RoleTable
	err   error
	calls int
}

func (r *stubRegistry) RoleOf(_ context.Context, userID id.UserID) (Role, bool, error) {
	r.calls++
	if r.err != nil {
		return "", false, r.err
	}
	role, ok := r.roles[userID]
	return role, ok, nil
}

func TestCheckAndRequireRole(t *testing.T) {
	ctx := context.Background()
	staff, viewer := id.NewUserID(), id.NewUserID()
	reg := &stubRegistry{roles: RoleTable{staff: RoleStaff, viewer: RoleViewer}}

	t.Run("check honors ownership", func(t *testing.T) {
		require.NoError(t, Check(ctx, reg, staff, CapMutateOwn, staff))
		err := Check(ctx, reg, staff, CapMutateOwn, id.NewUserID())
		assert.Equal(t, "not-owner", dErrors.ReasonOf(err))
	})

	t.Run("nil actor is unauthorized", func(t *testing.T) {
		err := Check(ctx, reg, id.UserID{}, CapRead, staff)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		err = RequireRole(ctx, reg, id.UserID{}, RoleAdmin)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("require role", func(t *testing.T) {
		require.NoError(t, RequireRole(ctx, reg, staff, RoleAdmin, RoleStaff))

		err := RequireRole(ctx, reg, viewer, RoleAdmin, RoleStaff)
		assert.Equal(t, "role-insufficient", dErrors.ReasonOf(err))

		err = RequireRole(ctx, reg, id.NewUserID(), RoleAdmin)
		assert.Equal(t, "unknown-actor", dErrors.ReasonOf(err))
	})

	t.Run("registry failure is internal", func(t *testing.T) {
		broken := &stubRegistry{err: errors.New("db down")}
		err := Check(ctx, broken, staff, CapRead, staff)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("staff")
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, r)

	_, err = ParseRole("superuser")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
