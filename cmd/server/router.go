package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	accesshandler "cinregistry/internal/access/handler"
	audithandler "cinregistry/internal/audit/handler"
	enrollmenthandler "cinregistry/internal/enrollment/handler"
	"cinregistry/internal/platform/metrics"
	dErrors "cinregistry/pkg/domain-errors"
	"cinregistry/pkg/platform/httputil"
	authmw "cinregistry/pkg/platform/middleware/auth"
	"cinregistry/pkg/platform/middleware/request"
	"cinregistry/pkg/platform/middleware/requesttime"
	"cinregistry/pkg/platform/middleware/token"
)

type routerDeps struct {
	log        *slog.Logger
	reg        *prometheus.Registry
	opsToken   string
	validator  authmw.JWTValidator
	access     accesshandler.Service
	enrollment enrollmenthandler.Service
	audit      audithandler.Service
	health     func(ctx context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.log))
	r.Use(request.Logger(d.log))
	r.Use(requesttime.Middleware)
	r.Use(metrics.NewHTTP(d.reg).Middleware)

	r.With(token.Require(d.opsToken, d.log)).Handle("/metrics", metrics.Handler(d.reg))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.health(ctx); err != nil {
			d.log.WarnContext(ctx, "health check failed", "error", err)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "dependency unavailable"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.validator, d.log))
		accesshandler.New(d.access, d.log).Register(r)
		enrollmenthandler.New(d.enrollment, d.log).Register(r)
		audithandler.New(d.audit, d.log).Register(r)
	})
	return otelhttp.NewHandler(r, "cinregistry.http")
}
