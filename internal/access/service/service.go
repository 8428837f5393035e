package service

import (
	"context"
	"errors"
	"log/slog"

	"cinregistry/internal/access"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/platform/audit/recorder"
	"cinregistry/pkg/platform/sentinel"
	"cinregistry/pkg/requestcontext"
)

// Service manages the role table. Only admins may change it.
type Service struct {
	store    access.Store
	registry access.Registry
	guard    *recorder.Guard
	logger   *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service. registry is consulted for the caller's own role and
// invalidated after every assignment when it caches.
func New(store access.Store, registry access.Registry, guard *recorder.Guard, opts ...Option) *Service {
	s := &Service{store: store, registry: registry, guard: guard}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// AssignRole sets target's role. Re-assigning the current role is a no-op.
func (s *Service) AssignRole(ctx context.Context, actor, target id.UserID, role access.Role) (*access.Assignment, error) {
	if target.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user ID is required")
	}
	if !role.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", role)
	}
	if err := access.Check(ctx, s.registry, actor, access.CapManageRoles, id.UserID{}); err != nil {
		return nil, err
	}
	return s.assign(ctx, actor, target, role)
}

// Bootstrap grants the admin role to userID when it has no role yet. It lets a
// fresh deployment create its first administrator.
func (s *Service) Bootstrap(ctx context.Context, userID id.UserID) error {
	_, err := s.store.Get(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load role")
	}
	_, err = s.assign(ctx, id.UserID{}, userID, access.RoleAdmin)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "bootstrap admin assigned", "user_id", userID.String())
	return nil
}

// ListRoles returns the role table.
func (s *Service) ListRoles(ctx context.Context, actor id.UserID) ([]access.Assignment, error) {
	if err := access.Check(ctx, s.registry, actor, access.CapManageRoles, id.UserID{}); err != nil {
		return nil, err
	}
	assignments, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roles")
	}
	return assignments, nil
}

func (s *Service) assign(ctx context.Context, actor, target id.UserID, role access.Role) (*access.Assignment, error) {
	var assigned access.Assignment
	err := s.guard.Mutate(ctx, audit.ActionRoleAssigned, audit.TableUserRoles,
		func(ctx context.Context) (recorder.Change, error) {
			current, err := s.store.Get(ctx, target)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return recorder.Change{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load role")
			}
			if current != nil && current.Role == role {
				return recorder.Change{}, dErrors.New(dErrors.CodeNoOp, "user already has this role")
			}

			assigned = access.Assignment{
				UserID:     target,
				Role:       role,
				AssignedBy: actor,
				UpdatedAt:  requestcontext.Now(ctx),
			}
			if err := s.store.Upsert(ctx, assigned); err != nil {
				return recorder.Change{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save role")
			}

			change := recorder.Change{Actor: actor, RecordID: target.String(), New: snapshot(assigned)}
			if current != nil {
				change.Old = snapshot(*current)
			}
			return change, nil
		})
	if err != nil {
		return nil, err
	}

	if inv, ok := s.registry.(access.Invalidator); ok {
		if err := inv.Invalidate(ctx, target); err != nil {
			s.logger.WarnContext(ctx, "role cache invalidation failed",
				"user_id", target.String(),
				"error", err,
			)
		}
	}
	s.logger.InfoContext(ctx, "role assigned",
		"log_type", "audit",
		"user_id", target.String(),
		"role", string(role),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &assigned, nil
}

func snapshot(a access.Assignment) audit.Snapshot {
	snap := audit.Snapshot{
		"user_id":    a.UserID.String(),
		"role":       string(a.Role),
		"updated_at": a.UpdatedAt,
	}
	if !a.AssignedBy.IsNil() {
		snap["assigned_by"] = a.AssignedBy.String()
	}
	return snap
}
