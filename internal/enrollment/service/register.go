package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"cinregistry/internal/access"
	"cinregistry/internal/enrollment/models"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/platform/audit/recorder"
	"cinregistry/pkg/requestcontext"
)

// RegisterRequest carries the fields of a new enrollee.
type RegisterRequest struct {
	Person            models.Person
	Plan              models.Plan
	EnrollmentType    models.EnrollmentType
	PrimaryEnrolleeID *id.EnrolleeID
}

// Register creates an enrollee with pending payment and no CIN. The actor
// becomes its owner.
func (s *Service) Register(ctx context.Context, req RegisterRequest, actor id.UserID) (_ *models.Enrollee, err error) {
	ctx, span := s.startSpan(ctx, "Register", attribute.String("plan", string(req.Plan)))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveOperation("register", time.Now())

	if err := access.RequireRole(ctx, s.registry, actor, access.RoleAdmin, access.RoleStaff); err != nil {
		return nil, err
	}
	e, err := models.NewEnrollee(id.NewEnrolleeID(), req.Person, req.Plan, req.EnrollmentType,
		req.PrimaryEnrolleeID, actor, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.guard.Mutate(ctx, audit.ActionEnrolleeCreated, audit.TableEnrollees,
		func(ctx context.Context) (recorder.Change, error) {
			if e.PrimaryEnrolleeID != nil {
				primary, err := s.store.FindEnrollee(ctx, *e.PrimaryEnrolleeID)
				if err != nil {
					return recorder.Change{}, translate(err, "primary enrollee")
				}
				if !primary.IsPrimary() {
					return recorder.Change{}, dErrors.New(dErrors.CodeInvalidInput,
						"linked enrollee is not a primary enrollee")
				}
			}
			if err := s.store.CreateEnrollee(ctx, e); err != nil {
				return recorder.Change{}, translate(err, "enrollee")
			}
			return recorder.Change{Actor: actor, RecordID: e.ID.String(), New: enrolleeSnapshot(e)}, nil
		})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementRegistered()
	s.logger.InfoContext(ctx, "enrollee registered",
		"log_type", "audit",
		"enrollee_id", e.ID.String(),
		"plan", string(e.Plan),
		"request_id", requestcontext.RequestID(ctx),
	)
	return e, nil
}
