package models

import (
	"strings"
	"time"

	dErrors "cinregistry/pkg/domain-errors"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentConfirmed, PaymentFailed:
		return true
	}
	return false
}

// ParsePaymentStatus validates a status arriving from outside the process.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown payment status %q", s)
	}
	return status, nil
}

// Moves back to pending are authorized corrections.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentConfirmed, PaymentFailed},
	PaymentConfirmed: {PaymentFailed, PaymentPending},
	PaymentFailed:    {PaymentPending},
}

func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PaymentUpdate is the input of a payment transition.
type PaymentUpdate struct {
	Status    PaymentStatus
	Reference string
	Date      *time.Time
}

// CanTransitionPayment validates update against the current status.
func (e *Enrollee) CanTransitionPayment(update PaymentUpdate) error {
	if !update.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown payment status %q", update.Status)
	}
	if !e.PaymentStatus.CanTransitionTo(update.Status) {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"payment cannot move from %s to %s", e.PaymentStatus, update.Status)
	}
	if update.Status == PaymentConfirmed && strings.TrimSpace(update.Reference) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "payment reference is required to confirm")
	}
	return nil
}

// ApplyPaymentTransition applies update. Must only be called after
// CanTransitionPayment returns nil. Confirmation without a date uses now. An
// issued CIN is kept on every transition.
func (e *Enrollee) ApplyPaymentTransition(update PaymentUpdate, now time.Time) {
	e.PaymentStatus = update.Status
	if ref := strings.TrimSpace(update.Reference); ref != "" {
		e.PaymentReference = ref
	}
	switch {
	case update.Date != nil:
		d := update.Date.UTC()
		e.PaymentDate = &d
	case update.Status == PaymentConfirmed:
		d := now
		e.PaymentDate = &d
	}
	e.UpdatedAt = now
}

// TransitionPayment validates and applies update in one call.
func (e *Enrollee) TransitionPayment(update PaymentUpdate, now time.Time) error {
	if err := e.CanTransitionPayment(update); err != nil {
		return err
	}
	e.ApplyPaymentTransition(update, now)
	return nil
}
