package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/platform/httputil"
	"cinregistry/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, table, recordID string, actor id.UserID) ([]audit.Entry, error)
	Recent(ctx context.Context, limit int, actor id.UserID) ([]audit.Entry, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleRecent)
	r.Get("/audit/{table}/{recordID}", h.handleList)
}

type entryResponse struct {
	ID        string         `json:"id"`
	UserID    *string        `json:"user_id"`
	Action    string         `json:"action"`
	TableName string         `json:"table_name"`
	RecordID  *string        `json:"record_id"`
	OldData   audit.Snapshot `json:"old_data"`
	NewData   audit.Snapshot `json:"new_data"`
	RequestID string         `json:"request_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func toResponses(entries []audit.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resp := entryResponse{
			ID:        e.ID.String(),
			Action:    string(e.Action),
			TableName: e.TableName,
			RecordID:  e.RecordID,
			OldData:   e.OldData,
			NewData:   e.NewData,
			RequestID: e.RequestID,
			CreatedAt: e.CreatedAt,
		}
		if e.UserID != nil {
			resp.UserID = audit.Ptr(e.UserID.String())
		}
		out = append(out, resp)
	}
	return out
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.List(ctx, chi.URLParam(r, "table"), chi.URLParam(r, "recordID"), requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to list audit entries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": toResponses(entries)})
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "limit must be a number"))
			return
		}
		limit = n
	}
	entries, err := h.service.Recent(ctx, limit, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to list recent audit entries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": toResponses(entries)})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
