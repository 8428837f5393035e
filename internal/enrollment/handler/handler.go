package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cinregistry/internal/enrollment/models"
	"cinregistry/internal/enrollment/service"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	"cinregistry/pkg/platform/httputil"
	"cinregistry/pkg/requestcontext"
)

// Service defines the enrollment operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req service.RegisterRequest, actor id.UserID) (*models.Enrollee, error)
	GetEnrollee(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) (*models.Enrollee, error)
	LookupCIN(ctx context.Context, code string, actor id.UserID) (*models.Enrollee, error)
	TransitionPayment(ctx context.Context, enrolleeID id.EnrolleeID, update models.PaymentUpdate, actor id.UserID) (*models.Enrollee, error)
	IssueCIN(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) (*models.Enrollee, error)
	ReassignFacility(ctx context.Context, enrolleeID id.EnrolleeID, facility string, actor id.UserID) (*models.FacilityHistoryEntry, error)
	ListFacilityHistory(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) ([]models.FacilityHistoryEntry, error)
	AddDependant(ctx context.Context, enrolleeID id.EnrolleeID, req service.AddDependantRequest, actor id.UserID) (*models.Dependant, error)
	RemoveDependant(ctx context.Context, dependantID id.DependantID, actor id.UserID) error
	ListDependants(ctx context.Context, enrolleeID id.EnrolleeID, actor id.UserID) ([]models.Dependant, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the enrollment routes. Callers install auth middleware first.
func (h *Handler) Register(r chi.Router) {
	r.Post("/enrollees", h.handleRegister)
	r.Get("/enrollees/{enrolleeID}", h.handleGetEnrollee)
	r.Post("/enrollees/{enrolleeID}/payment", h.handleTransitionPayment)
	r.Post("/enrollees/{enrolleeID}/cin", h.handleIssueCIN)
	r.Put("/enrollees/{enrolleeID}/facility", h.handleReassignFacility)
	r.Get("/enrollees/{enrolleeID}/facility-history", h.handleFacilityHistory)
	r.Post("/enrollees/{enrolleeID}/dependants", h.handleAddDependant)
	r.Get("/enrollees/{enrolleeID}/dependants", h.handleListDependants)
	r.Delete("/dependants/{dependantID}", h.handleRemoveDependant)
	r.Get("/cins/{code}", h.handleLookupCIN)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := req.toService()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	e, err := h.service.Register(ctx, in, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to register enrollee", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEnrolleeResponse(e))
}

func (h *Handler) handleGetEnrollee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrolleeID, err := id.ParseEnrolleeID(chi.URLParam(r, "enrolleeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.GetEnrollee(ctx, enrolleeID, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to get enrollee", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEnrolleeResponse(e))
}

func (h *Handler) handleLookupCIN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, err := h.service.LookupCIN(ctx, chi.URLParam(r, "code"), requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to look up CIN", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEnrolleeResponse(e))
}

func (h *Handler) handleTransitionPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrolleeID, err := id.ParseEnrolleeID(chi.URLParam(r, "enrolleeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req paymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := models.ParsePaymentStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	e, err := h.service.TransitionPayment(ctx, enrolleeID, models.PaymentUpdate{
		Status:    status,
		Reference: req.Reference,
		Date:      req.Date,
	}, requestcontext.UserID(ctx))
	if err != nil {
		// the transition committed even when issuance did not
		if e != nil {
			h.logger.WarnContext(ctx, "payment confirmed without CIN",
				"enrollee_id", enrolleeID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		h.fail(w, r, "failed to transition payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEnrolleeResponse(e))
}

func (h *Handler) handleIssueCIN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrolleeID, err := id.ParseEnrolleeID(chi.URLParam(r, "enrolleeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.IssueCIN(ctx, enrolleeID, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to issue CIN", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEnrolleeResponse(e))
}

func (h *Handler) handleReassignFacility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrolleeID, err := id.ParseEnrolleeID(chi.URLParam(r, "enrolleeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req facilityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	entry, err := h.service.ReassignFacility(ctx, enrolleeID, req.Facility, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to reassign facility", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHistoryResponse(*entry))
}

func (h *Handler) handleFacilityHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrolleeID, err := id.ParseEnrolleeID(chi.URLParam(r, "enrolleeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.ListFacilityHistory(ctx, enrolleeID, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to list facility history", err)
		return
	}
	out := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (h *Handler) handleAddDependant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrolleeID, err := id.ParseEnrolleeID(chi.URLParam(r, "enrolleeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req dependantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := req.toService()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.AddDependant(ctx, enrolleeID, in, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to add dependant", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDependantResponse(d))
}

func (h *Handler) handleListDependants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrolleeID, err := id.ParseEnrolleeID(chi.URLParam(r, "enrolleeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dependants, err := h.service.ListDependants(ctx, enrolleeID, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to list dependants", err)
		return
	}
	out := make([]dependantResponse, 0, len(dependants))
	for i := range dependants {
		out = append(out, toDependantResponse(&dependants[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"dependants": out})
}

func (h *Handler) handleRemoveDependant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dependantID, err := id.ParseDependantID(chi.URLParam(r, "dependantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RemoveDependant(ctx, dependantID, requestcontext.UserID(ctx)); err != nil {
		h.fail(w, r, "failed to remove dependant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err, "code", string(dErrors.CodeOf(err)))
	}
	httputil.WriteError(w, err)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
