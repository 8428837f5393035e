// Package service implements the enrollment operations: registration, the
// payment state machine, CIN issuance, facility reassignment and dependants.
//
// Every mutation goes through recorder.Guard, so the record change and its
// audit entry commit together. Authorization runs inside the guarded function
// after the record is loaded, because staff rights depend on who created it.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CINGenerator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cinregistry/internal/access"
	"cinregistry/internal/enrollment/metrics"
	"cinregistry/internal/enrollment/models"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	"cinregistry/pkg/platform/audit/recorder"
	"cinregistry/pkg/platform/sentinel"
)

// Store persists enrollees, dependants and facility history. Finds inside a
// transaction lock the row.
type Store interface {
	CreateEnrollee(ctx context.Context, e *models.Enrollee) error
	FindEnrollee(ctx context.Context, enrolleeID id.EnrolleeID) (*models.Enrollee, error)
	FindEnrolleeByCIN(ctx context.Context, code string) (*models.Enrollee, error)
	UpdateEnrollee(ctx context.Context, e *models.Enrollee) error
	AppendFacilityHistory(ctx context.Context, entry models.FacilityHistoryEntry) error
	ListFacilityHistory(ctx context.Context, enrolleeID id.EnrolleeID) ([]models.FacilityHistoryEntry, error)
	CreateDependant(ctx context.Context, d *models.Dependant) error
	FindDependant(ctx context.Context, dependantID id.DependantID) (*models.Dependant, error)
	UpdateDependant(ctx context.Context, d *models.Dependant) error
	DeleteDependant(ctx context.Context, dependantID id.DependantID) error
	ListDependants(ctx context.Context, enrolleeID id.EnrolleeID) ([]models.Dependant, error)
}

// CINGenerator issues primary and dependant codes and claims them in the ledger.
type CINGenerator interface {
	IssuePrimary(ctx context.Context, plan, lga string, owner uuid.UUID) (string, error)
	IssueDependant(ctx context.Context, parentCIN string, owner uuid.UUID) (string, error)
}

type Service struct {
	store     Store
	registry  access.Registry
	guard     *recorder.Guard
	generator CINGenerator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(store Store, registry access.Registry, guard *recorder.Guard, generator CINGenerator, opts ...Option) *Service {
	s := &Service{
		store:     store,
		registry:  registry,
		guard:     guard,
		generator: generator,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("cinregistry/enrollment")
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "enrollment."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

// loadEnrollee translates store errors into domain errors.
func (s *Service) loadEnrollee(ctx context.Context, enrolleeID id.EnrolleeID) (*models.Enrollee, error) {
	e, err := s.store.FindEnrollee(ctx, enrolleeID)
	if err != nil {
		return nil, translate(err, "enrollee")
	}
	return e, nil
}

func translate(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", what)
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+what)
}

// GetEnrollee returns one enrollee to any actor with read access.
func (s *Service) GetEnrollee(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) (_ *models.Enrollee, err error) {
	ctx, span := s.startSpan(ctx, "GetEnrollee", attribute.String("enrollee_id", enrolleeID.String()))
	defer func() { endSpan(span, err) }()

	e, err := s.loadEnrollee(ctx, enrolleeID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(ctx, s.registry, actor, access.CapRead, e.CreatedBy); err != nil {
		return nil, err
	}
	return e, nil
}

// LookupCIN resolves a primary or dependant code to the enrollee it belongs to.
func (s *Service) LookupCIN(ctx context.Context, code string, actor id.UserID) (_ *models.Enrollee, err error) {
	ctx, span := s.startSpan(ctx, "LookupCIN", attribute.String("cin", code))
	defer func() { endSpan(span, err) }()

	if err := access.Check(ctx, s.registry, actor, access.CapRead, id.UserID{}); err != nil {
		return nil, err
	}
	primary := code
	if parent, ok := parentOf(code); ok {
		primary = parent
	}
	e, err := s.store.FindEnrolleeByCIN(ctx, primary)
	if err != nil {
		return nil, translate(err, "CIN")
	}
	return e, nil
}
