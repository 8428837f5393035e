package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"cinregistry/internal/access"
	"cinregistry/internal/enrollment/models"
	id "cinregistry/pkg/domain"
	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/platform/audit/recorder"
	"cinregistry/pkg/requestcontext"
)

// ReassignFacility moves an enrollee to another facility. The update, the
// history entry and the audit entry commit together. Reassigning to the
// current facility is a no-op and writes nothing.
func (s *Service) ReassignFacility(ctx context.Context, enrolleeID id.EnrolleeID, facility string, actor id.UserID) (_ *models.FacilityHistoryEntry, err error) {
	ctx, span := s.startSpan(ctx, "ReassignFacility", attribute.String("enrollee_id", enrolleeID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveOperation("reassign_facility", time.Now())

	if err := access.RequireRole(ctx, s.registry, actor, access.RoleAdmin, access.RoleStaff); err != nil {
		return nil, err
	}

	var entry models.FacilityHistoryEntry
	err = s.guard.Mutate(ctx, audit.ActionFacilityReassigned, audit.TableEnrollees,
		func(ctx context.Context) (recorder.Change, error) {
			e, err := s.loadEnrollee(ctx, enrolleeID)
			if err != nil {
				return recorder.Change{}, err
			}
			now := requestcontext.Now(ctx)
			old, err := e.ReassignFacility(facility, now)
			if err != nil {
				return recorder.Change{}, err
			}
			if err := s.store.UpdateEnrollee(ctx, e); err != nil {
				return recorder.Change{}, translate(err, "enrollee")
			}

			entry = models.FacilityHistoryEntry{
				ID:          id.NewHistoryEntryID(),
				EnrolleeID:  e.ID,
				OldFacility: old,
				NewFacility: e.Facility,
				ActorID:     actor,
				ChangedAt:   now,
			}
			if err := s.store.AppendFacilityHistory(ctx, entry); err != nil {
				return recorder.Change{}, translate(err, "facility history")
			}
			return recorder.Change{
				Actor:    actor,
				RecordID: e.ID.String(),
				Old:      audit.Snapshot{"facility": old},
				New:      audit.Snapshot{"facility": e.Facility, "history_entry_id": entry.ID.String()},
			}, nil
		})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementFacilityChange()
	s.logger.InfoContext(ctx, "facility reassigned",
		"log_type", "audit",
		"enrollee_id", enrolleeID.String(),
		"old_facility", entry.OldFacility,
		"new_facility", entry.NewFacility,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &entry, nil
}

// ListFacilityHistory returns an enrollee's reassignments, newest first.
func (s *Service) ListFacilityHistory(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) (_ []models.FacilityHistoryEntry, err error) {
	ctx, span := s.startSpan(ctx, "ListFacilityHistory", attribute.String("enrollee_id", enrolleeID.String()))
	defer func() { endSpan(span, err) }()

	e, err := s.loadEnrollee(ctx, enrolleeID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(ctx, s.registry, actor, access.CapRead, e.CreatedBy); err != nil {
		return nil, err
	}
	entries, err := s.store.ListFacilityHistory(ctx, enrolleeID)
	if err != nil {
		return nil, translate(err, "facility history")
	}
	return entries, nil
}
