package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"cinregistry/internal/access"
	accessstore "cinregistry/internal/access/store"
	"cinregistry/internal/cin"
	cinstore "cinregistry/internal/cin/store"
	enrollmentservice "cinregistry/internal/enrollment/service"
	enrollmentstore "cinregistry/internal/enrollment/store"
	"cinregistry/internal/platform/config"
	"cinregistry/internal/platform/postgres"
	redisplatform "cinregistry/internal/platform/redis"
	audit "cinregistry/pkg/platform/audit"
	auditmemory "cinregistry/pkg/platform/audit/store/memory"
	auditpostgres "cinregistry/pkg/platform/audit/store/postgres"
	"cinregistry/pkg/platform/sentinel"
	txcontext "cinregistry/pkg/platform/tx"
)

// infra holds the storage backends: Postgres when DATABASE_URL is set,
// in-memory stores otherwise, plus an optional Redis client.
type infra struct {
	db    *sql.DB
	redis *redisplatform.Client

	runner          txcontext.Runner
	roleStore       access.Store
	enrollmentStore enrollmentservice.Store
	ledger          cin.Ledger
	auditStore      audit.Store
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		in.db = db
		in.runner = txcontext.NewPostgresRunner(db, cfg.Database.TxTimeout)
		in.roleStore = accessstore.NewPostgres(db)
		in.enrollmentStore = enrollmentstore.NewPostgres(db)
		in.ledger = cinstore.NewPostgres(db)
		in.auditStore = auditpostgres.New(db)
		log.Info("using postgres storage")
	} else {
		in.runner = txcontext.NewMemoryRunner()
		in.roleStore = accessstore.NewInMemoryRoleStore()
		in.enrollmentStore = enrollmentstore.NewInMemoryStore()
		in.ledger = cinstore.NewInMemoryLedger()
		in.auditStore = auditmemory.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	client, err := redisplatform.Connect(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.redis = client
	return in, nil
}

// roleRegistry caches role lookups in Redis when available so every replica
// sees an invalidation, and in process otherwise.
func (in *infra) roleRegistry(ttl time.Duration) access.Registry {
	base := access.NewStoreRegistry(in.roleStore)
	if in.redis != nil {
		return access.NewRedisRegistry(in.redis.Client, base, ttl)
	}
	return access.NewCachedRegistry(base, ttl)
}

func (in *infra) counter(kind string, log *slog.Logger) cin.Counter {
	switch kind {
	case config.CounterMemory:
		return cin.NewMemoryCounter(in.ledger)
	case config.CounterRedis:
		return cin.NewRedisCounter(in.redis.Client, in.ledger, cin.WithCounterLogger(log))
	default:
		return cin.NewStoreCounter(in.ledger)
	}
}

func (in *infra) outbox() (audit.Outbox, bool) {
	o, ok := in.auditStore.(audit.Outbox)
	return o, ok
}

// Health reports the reachability of the configured backends.
func (in *infra) Health(ctx context.Context) error {
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres ping: %w: %w", sentinel.ErrUnavailable, err)
		}
	}
	if in.redis != nil {
		return in.redis.Health(ctx)
	}
	return nil
}

func (in *infra) Close() {
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}
