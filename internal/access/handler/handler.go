package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cinregistry/internal/access"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	"cinregistry/pkg/platform/httputil"
	"cinregistry/pkg/requestcontext"
)

// Service defines the role management operations exposed over HTTP.
type Service interface {
	AssignRole(ctx context.Context, actor, target id.UserID, role access.Role) (*access.Assignment, error)
	ListRoles(ctx context.Context, actor id.UserID) ([]access.Assignment, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the role routes. Callers install auth middleware first.
func (h *Handler) Register(r chi.Router) {
	r.Get("/roles", h.handleListRoles)
	r.Put("/roles/{userID}", h.handleAssignRole)
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

type assignmentResponse struct {
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	AssignedBy string    `json:"assigned_by,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toResponse(a access.Assignment) assignmentResponse {
	resp := assignmentResponse{
		UserID:    a.UserID.String(),
		Role:      string(a.Role),
		UpdatedAt: a.UpdatedAt,
	}
	if !a.AssignedBy.IsNil() {
		resp.AssignedBy = a.AssignedBy.String()
	}
	return resp
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	target, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req assignRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	assigned, err := h.service.AssignRole(ctx, requestcontext.UserID(ctx), target, role)
	if err != nil {
		h.logFailure(ctx, "failed to assign role", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*assigned))
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assignments, err := h.service.ListRoles(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "failed to list roles", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err, "code", string(dErrors.CodeOf(err)))
}
