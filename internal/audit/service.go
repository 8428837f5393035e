// Package audit answers queries over the append-only audit log.
package audit

import (
	"context"
	"log/slog"

	"cinregistry/internal/access"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	audit "cinregistry/pkg/platform/audit"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

var auditedTables = map[string]struct{}{
	audit.TableEnrollees:  {},
	audit.TableDependants: {},
	audit.TableUserRoles:  {},
}

// Service reads audit entries. Writes only happen through recorder.Guard.
type Service struct {
	store    audit.Store
	registry access.Registry
	logger   *slog.Logger
}

func NewService(store audit.Store, registry access.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, registry: registry, logger: logger}
}

// List returns the entries recorded for one row, oldest first.
func (s *Service) List(ctx context.Context, table, recordID string, actor id.UserID) ([]audit.Entry, error) {
	if _, ok := auditedTables[table]; !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown audited table %q", table)
	}
	if recordID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "record ID is required")
	}
	if err := access.Check(ctx, s.registry, actor, access.CapRead, id.UserID{}); err != nil {
		return nil, err
	}
	entries, err := s.store.ListByRecord(ctx, table, recordID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// Recent returns the newest entries across all tables. Admins only.
func (s *Service) Recent(ctx context.Context, limit int, actor id.UserID) ([]audit.Entry, error) {
	if err := access.RequireRole(ctx, s.registry, actor, access.RoleAdmin); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	entries, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}
