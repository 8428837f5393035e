package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	accessservice "cinregistry/internal/access/service"
	auditquery "cinregistry/internal/audit"
	"cinregistry/internal/cin"
	enrollmentmetrics "cinregistry/internal/enrollment/metrics"
	enrollmentservice "cinregistry/internal/enrollment/service"
	jwttoken "cinregistry/internal/jwt_token"
	"cinregistry/internal/platform/config"
	"cinregistry/internal/platform/httpserver"
	"cinregistry/internal/platform/logger"
	"cinregistry/internal/platform/metrics"
	"cinregistry/internal/platform/tracing"
	id "cinregistry/pkg/domain"
	"cinregistry/pkg/platform/audit/recorder"
	"cinregistry/pkg/platform/audit/relay"
	"cinregistry/pkg/requestcontext"
)

const (
	tokenIssuer   = "cinregistry"
	tokenAudience = "cinregistry-api"
)

// main wires dependencies and runs the HTTP server alongside the audit
// retrier and relay until a signal arrives. Business logic lives in internal
// service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("trace flush failed", "error", err)
		}
	}()

	reg := metrics.NewRegistry()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	registry := infra.roleRegistry(cfg.Access.RoleCacheTTL)
	rec := recorder.New(infra.auditStore,
		recorder.WithLogger(log),
		recorder.WithMetrics(recorder.NewMetrics(reg)),
		recorder.WithAlarmSink(recorder.NewLogSink(log)),
		recorder.WithGraceWindow(cfg.Audit.GraceWindow),
		recorder.WithPendingCapacity(cfg.Audit.PendingCapacity),
	)
	guard := recorder.NewGuard(infra.runner, rec)

	generator := cin.NewGenerator(infra.ledger,
		cin.WithCounter(infra.counter(cfg.CIN.Counter, log)),
		cin.WithMaxAttempts(cfg.CIN.MaxAttempts),
		cin.WithLogger(log),
		cin.WithMetrics(cin.NewMetrics(reg)),
	)

	accessSvc := accessservice.New(infra.roleStore, registry, guard, accessservice.WithLogger(log))
	enrollmentSvc := enrollmentservice.New(infra.enrollmentStore, registry, guard, generator,
		enrollmentservice.WithLogger(log),
		enrollmentservice.WithMetrics(enrollmentmetrics.New(reg)),
	)
	auditSvc := auditquery.NewService(infra.auditStore, registry, log)

	if cfg.BootstrapAdminID != "" {
		adminID, err := id.ParseUserID(cfg.BootstrapAdminID)
		if err != nil {
			return err
		}
		bootCtx := requestcontext.WithTime(ctx, time.Now().UTC())
		if err := accessSvc.Bootstrap(bootCtx, adminID); err != nil {
			return err
		}
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)
	router := newRouter(routerDeps{
		log:        log,
		reg:        reg,
		opsToken:   cfg.OpsToken,
		validator:  jwttoken.NewJWTServiceAdapter(jwtService),
		access:     accessSvc,
		enrollment: enrollmentSvc,
		audit:      auditSvc,
		health:     infra.Health,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, srv, log)
	})
	g.Go(func() error {
		return ignoreCancel(recorder.NewRetrier(rec, cfg.Audit.RetryInterval).Run(gctx))
	})
	if outbox, ok := infra.outbox(); ok && len(cfg.Audit.KafkaBrokers) > 0 {
		client, err := relay.NewClient(cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			return err
		}
		defer client.Close()
		r := relay.New(outbox, client, cfg.Audit.Topic,
			relay.WithLogger(log),
			relay.WithInterval(cfg.Audit.RelayInterval),
		)
		g.Go(func() error {
			return ignoreCancel(r.Run(gctx))
		})
		log.Info("audit relay enabled", "topic", cfg.Audit.Topic)
	}
	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
