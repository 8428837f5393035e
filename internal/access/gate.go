package access

import (
	"context"

	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
)

// RoleLookup resolves a user's role from an explicitly supplied table.
type RoleLookup interface {
	Lookup(userID id.UserID) (Role, bool)
}

// RoleTable is an in-memory role table.
type RoleTable map[id.UserID]Role

func (t RoleTable) Lookup(userID id.UserID) (Role, bool) {
	r, ok := t[userID]
	return r, ok
}

// Authorize decides whether actor may exercise capability on a resource owned
// by owner. It has no side effects.
//
//	admin  -> every capability
//	staff  -> read; mutate-own when owner == actor
//	viewer -> read
func Authorize(roles RoleLookup, actor id.UserID, capability Capability, owner id.UserID) Decision {
	if actor.IsNil() {
		return deny(ReasonUnknownActor)
	}
	role, ok := roles.Lookup(actor)
	if !ok {
		return deny(ReasonUnknownActor)
	}

	switch role {
	case RoleAdmin:
		return allow()
	case RoleStaff:
		switch capability {
		case CapRead:
			return allow()
		case CapMutateOwn:
			if owner == actor {
				return allow()
			}
			return deny(ReasonNotOwner)
		}
	case RoleViewer:
		if capability == CapRead {
			return allow()
		}
	}
	return deny(ReasonRoleInsufficient)
}

// Err converts a denied decision into a forbidden domain error carrying the reason.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnknownActor {
		return dErrors.Forbidden(string(d.Reason), "actor has no role")
	}
	return dErrors.Forbidden(string(d.Reason), "operation not permitted")
}

// Check resolves the actor through the registry and authorizes in one step.
func Check(ctx context.Context, registry Registry, actor id.UserID, capability Capability, owner id.UserID) error {
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	table, err := tableFor(ctx, registry, actor)
	if err != nil {
		return err
	}
	return Authorize(table, actor, capability, owner).Err()
}

// RequireRole gates operations that depend on role alone, not ownership.
func RequireRole(ctx context.Context, registry Registry, actor id.UserID, allowed ...Role) error {
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	table, err := tableFor(ctx, registry, actor)
	if err != nil {
		return err
	}
	role, ok := table.Lookup(actor)
	if !ok {
		return deny(ReasonUnknownActor).Err()
	}
	for _, r := range allowed {
		if role == r {
			return nil
		}
	}
	return deny(ReasonRoleInsufficient).Err()
}

func tableFor(ctx context.Context, registry Registry, actor id.UserID) (RoleTable, error) {
	role, ok, err := registry.RoleOf(ctx, actor)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve actor role")
	}
	if !ok {
		return RoleTable{}, nil
	}
	return RoleTable{actor: role}, nil
}
