package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"cinregistry/internal/access"
	"cinregistry/internal/enrollment/models"
	id "cinregistry/pkg/domain"
	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/platform/audit/recorder"
	"cinregistry/pkg/requestcontext"
)

type AddDependantRequest struct {
	Relationship models.Relationship
	Person       models.Person
}

// AddDependant attaches a dependant to an enrollee. It receives a derived CIN
// right away when the parent has one; otherwise it waits for the parent's
// issuance.
func (s *Service) AddDependant(ctx context.Context, enrolleeID id.EnrolleeID, req AddDependantRequest, actor id.UserID) (_ *models.Dependant, err error) {
	ctx, span := s.startSpan(ctx, "AddDependant", attribute.String("enrollee_id", enrolleeID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveOperation("add_dependant", time.Now())

	var added *models.Dependant
	err = s.guard.Mutate(ctx, audit.ActionDependantAdded, audit.TableDependants,
		func(ctx context.Context) (recorder.Change, error) {
			parent, err := s.loadEnrollee(ctx, enrolleeID)
			if err != nil {
				return recorder.Change{}, err
			}
			if err := access.Check(ctx, s.registry, actor, access.CapMutateOwn, parent.CreatedBy); err != nil {
				return recorder.Change{}, err
			}
			d, err := models.NewDependant(id.NewDependantID(), parent.ID, req.Relationship, req.Person,
				actor, requestcontext.Now(ctx))
			if err != nil {
				return recorder.Change{}, err
			}
			if parent.HasCIN() {
				code, err := s.generator.IssueDependant(ctx, parent.CIN, uuid.UUID(d.ID))
				if err != nil {
					return recorder.Change{}, err
				}
				d.CIN = code
			}
			if err := s.store.CreateDependant(ctx, d); err != nil {
				return recorder.Change{}, translate(err, "dependant")
			}
			added = d
			return recorder.Change{Actor: actor, RecordID: d.ID.String(), New: dependantSnapshot(d)}, nil
		})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDependantChange("added")
	s.logger.InfoContext(ctx, "dependant added",
		"log_type", "audit",
		"enrollee_id", enrolleeID.String(),
		"dependant_id", added.ID.String(),
		"cin", added.CIN,
		"request_id", requestcontext.RequestID(ctx),
	)
	return added, nil
}

// RemoveDependant deletes one dependant. Its issued CIN stays claimed in the
// ledger and is never reissued.
func (s *Service) RemoveDependant(ctx context.Context, dependantID id.DependantID, actor id.UserID) (err error) {
	ctx, span := s.startSpan(ctx, "RemoveDependant", attribute.String("dependant_id", dependantID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveOperation("remove_dependant", time.Now())

	var removed *models.Dependant
	err = s.guard.Mutate(ctx, audit.ActionDependantRemoved, audit.TableDependants,
		func(ctx context.Context) (recorder.Change, error) {
			d, err := s.store.FindDependant(ctx, dependantID)
			if err != nil {
				return recorder.Change{}, translate(err, "dependant")
			}
			parent, err := s.loadEnrollee(ctx, d.EnrolleeID)
			if err != nil {
				return recorder.Change{}, err
			}
			if err := access.Check(ctx, s.registry, actor, access.CapMutateOwn, parent.CreatedBy); err != nil {
				return recorder.Change{}, err
			}
			if err := s.store.DeleteDependant(ctx, dependantID); err != nil {
				return recorder.Change{}, translate(err, "dependant")
			}
			removed = d
			return recorder.Change{Actor: actor, RecordID: d.ID.String(), Old: dependantSnapshot(d)}, nil
		})
	if err != nil {
		return err
	}

	s.metrics.IncrementDependantChange("removed")
	s.logger.InfoContext(ctx, "dependant removed",
		"log_type", "audit",
		"enrollee_id", removed.EnrolleeID.String(),
		"dependant_id", dependantID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// ListDependants returns an enrollee's dependants in the order they were added.
func (s *Service) ListDependants(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) (_ []models.Dependant, err error) {
	ctx, span := s.startSpan(ctx, "ListDependants", attribute.String("enrollee_id", enrolleeID.String()))
	defer func() { endSpan(span, err) }()

	parent, err := s.loadEnrollee(ctx, enrolleeID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(ctx, s.registry, actor, access.CapRead, parent.CreatedBy); err != nil {
		return nil, err
	}
	dependants, err := s.store.ListDependants(ctx, enrolleeID)
	if err != nil {
		return nil, translate(err, "dependants")
	}
	return dependants, nil
}
