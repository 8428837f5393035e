package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"cinregistry/internal/access"
	"cinregistry/internal/enrollment/models"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/platform/audit/recorder"
	"cinregistry/pkg/requestcontext"
)

// IssueCIN issues the primary CIN of a confirmed enrollee that has none, plus
// the codes of dependants waiting on it. It is the retry entry point after a
// generation conflict.
func (s *Service) IssueCIN(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) (_ *models.Enrollee, err error) {
	ctx, span := s.startSpan(ctx, "IssueCIN", attribute.String("enrollee_id", enrolleeID.String()))
	defer func() { endSpan(span, err) }()

	return s.issueCIN(ctx, enrolleeID, actor)
}

func (s *Service) issueCIN(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) (*models.Enrollee, error) {
	defer s.metrics.ObserveOperation("issue_cin", time.Now())

	var (
		issued     *models.Enrollee
		dependants int
	)
	err := s.guard.Mutate(ctx, audit.ActionCINIssued, audit.TableEnrollees,
		func(ctx context.Context) (recorder.Change, error) {
			e, err := s.loadEnrollee(ctx, enrolleeID)
			if err != nil {
				return recorder.Change{}, err
			}
			if err := access.Check(ctx, s.registry, actor, access.CapMutateOwn, e.CreatedBy); err != nil {
				return recorder.Change{}, err
			}
			if err := e.CanIssueCIN(); err != nil {
				return recorder.Change{}, err
			}

			// Every code is generated before the first store write so a failed
			// generation leaves nothing behind.
			code, err := s.generator.IssuePrimary(ctx, string(e.Plan), e.LGACode, uuid.UUID(e.ID))
			if err != nil {
				return recorder.Change{}, err
			}
			waiting, err := s.claimDependantCodes(ctx, e.ID, code)
			if err != nil {
				return recorder.Change{}, err
			}

			e.AssignCIN(code, requestcontext.Now(ctx))
			if err := s.store.UpdateEnrollee(ctx, e); err != nil {
				return recorder.Change{}, translate(err, "enrollee")
			}
			related, err := s.storeDependantCodes(ctx, e, waiting)
			if err != nil {
				return recorder.Change{}, err
			}
			issued = e
			dependants = len(related)
			return recorder.Change{
				Actor:    actor,
				RecordID: e.ID.String(),
				Old:      audit.Snapshot{"cin": nil},
				New:      audit.Snapshot{"cin": code},
				Related:  related,
			}, nil
		})
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNoOp) {
			s.metrics.IncrementIssuanceFailure(string(dErrors.CodeOf(err)))
			s.logger.ErrorContext(ctx, "CIN issuance failed",
				"enrollee_id", enrolleeID.String(),
				"code", string(dErrors.CodeOf(err)),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "CIN issued",
		"log_type", "audit",
		"enrollee_id", enrolleeID.String(),
		"cin", issued.CIN,
		"dependants", dependants,
		"request_id", requestcontext.RequestID(ctx),
	)
	return issued, nil
}

// claimDependantCodes derives codes for dependants added before the parent
// had one. Nothing is written; the returned dependants carry their new codes.
func (s *Service) claimDependantCodes(ctx context.Context, parentID id.EnrolleeID, parentCIN string) ([]models.Dependant, error) {
	all, err := s.store.ListDependants(ctx, parentID)
	if err != nil {
		return nil, translate(err, "dependants")
	}

	var waiting []models.Dependant
	for _, d := range all {
		if d.HasCIN() {
			continue
		}
		code, err := s.generator.IssueDependant(ctx, parentCIN, uuid.UUID(d.ID))
		if err != nil {
			return nil, err
		}
		d.CIN = code
		waiting = append(waiting, d)
	}
	return waiting, nil
}

// storeDependantCodes persists claimed dependant codes. Each becomes a related
// audit entry of the parent's issuance.
func (s *Service) storeDependantCodes(ctx context.Context, parent *models.Enrollee, waiting []models.Dependant) ([]audit.Entry, error) {
	var related []audit.Entry
	for i := range waiting {
		d := &waiting[i]
		if err := s.store.UpdateDependant(ctx, d); err != nil {
			return nil, translate(err, "dependant")
		}
		related = append(related, audit.Entry{
			Action:    audit.ActionDependantCINIssued,
			TableName: audit.TableDependants,
			RecordID:  audit.Ptr(d.ID.String()),
			OldData:   audit.Snapshot{"cin": nil},
			NewData:   audit.Snapshot{"cin": d.CIN, "enrollee_id": parent.ID.String()},
		})
	}
	return related, nil
}
