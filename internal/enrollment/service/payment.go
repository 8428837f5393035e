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

// TransitionPayment moves the enrollee's payment status. When the move
// confirms payment and the enrollee still needs a CIN, issuance runs as a
// second unit of work after the transition commits.
//
// If issuance fails the confirmed enrollee is returned together with the
// error; the transition itself is not rolled back.
func (s *Service) TransitionPayment(ctx context.Context, enrolleeID id.EnrolleeID, update models.PaymentUpdate, actor id.UserID) (_ *models.Enrollee, err error) {
	ctx, span := s.startSpan(ctx, "TransitionPayment",
		attribute.String("enrollee_id", enrolleeID.String()),
		attribute.String("payment_status", string(update.Status)),
	)
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveOperation("transition_payment", time.Now())

	var (
		updated *models.Enrollee
		from    models.PaymentStatus
	)
	err = s.guard.Mutate(ctx, audit.ActionPaymentStatusChanged, audit.TableEnrollees,
		func(ctx context.Context) (recorder.Change, error) {
			e, err := s.loadEnrollee(ctx, enrolleeID)
			if err != nil {
				return recorder.Change{}, err
			}
			if err := access.Check(ctx, s.registry, actor, access.CapMutateOwn, e.CreatedBy); err != nil {
				return recorder.Change{}, err
			}
			if err := e.CanTransitionPayment(update); err != nil {
				return recorder.Change{}, err
			}

			old := paymentSnapshot(e)
			from = e.PaymentStatus
			e.ApplyPaymentTransition(update, requestcontext.Now(ctx))
			if err := s.store.UpdateEnrollee(ctx, e); err != nil {
				return recorder.Change{}, translate(err, "enrollee")
			}
			updated = e
			return recorder.Change{Actor: actor, RecordID: e.ID.String(), Old: old, New: paymentSnapshot(e)}, nil
		})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementPaymentTransition(string(from), string(updated.PaymentStatus))
	s.logger.InfoContext(ctx, "payment status changed",
		"log_type", "audit",
		"enrollee_id", enrolleeID.String(),
		"from", string(from),
		"to", string(updated.PaymentStatus),
		"request_id", requestcontext.RequestID(ctx),
	)

	if !updated.NeedsCIN() {
		return updated, nil
	}
	issued, err := s.issueCIN(ctx, enrolleeID, actor)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNoOp) {
			return s.loadEnrollee(ctx, enrolleeID)
		}
		return updated, err
	}
	return issued, nil
}

// ConfirmPayment is TransitionPayment to confirmed.
func (s *Service) ConfirmPayment(ctx context.Context, enrolleeID id.EnrolleeID, reference string, date *time.Time, actor id.UserID) (*models.Enrollee, error) {
	return s.TransitionPayment(ctx, enrolleeID, models.PaymentUpdate{
		Status:    models.PaymentConfirmed,
		Reference: reference,
		Date:      date,
	}, actor)
}
