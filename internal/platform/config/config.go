package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	textutil "cinregistry/pkg/platform/strings"
)

// Environment names accepted in ENVIRONMENT.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Counter backends for CIN sequences.
const (
	CounterStore  = "store"
	CounterMemory = "memory"
	CounterRedis  = "redis"
)

// Server captures process level configuration.
type Server struct {
	Addr             string `env:"CINREG_ADDR" envDefault:":8080"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	JWTSigningKey    string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	BootstrapAdminID string `env:"BOOTSTRAP_ADMIN_ID"`
	OpsToken         string `env:"OPS_TOKEN"`

	Database DatabaseConfig
	Redis    RedisConfig
	CIN      CINConfig
	Audit    AuditConfig
	Access   AccessConfig
	Tracing  TracingConfig
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout       time.Duration `env:"DATABASE_TX_TIMEOUT" envDefault:"5s"`
}

type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type CINConfig struct {
	MaxAttempts int    `env:"CIN_MAX_ATTEMPTS" envDefault:"5"`
	Counter     string `env:"CIN_COUNTER" envDefault:"store"`
}

type AuditConfig struct {
	GraceWindow     time.Duration `env:"AUDIT_GRACE_WINDOW" envDefault:"5m"`
	RetryInterval   time.Duration `env:"AUDIT_RETRY_INTERVAL" envDefault:"10s"`
	PendingCapacity int           `env:"AUDIT_PENDING_CAPACITY" envDefault:"1024"`
	KafkaBrokers    []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic           string        `env:"AUDIT_TOPIC" envDefault:"cinregistry.audit"`
	RelayInterval   time.Duration `env:"AUDIT_RELAY_INTERVAL" envDefault:"5s"`
}

type AccessConfig struct {
	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL" envDefault:"1m"`
}

// TracingConfig enables OTLP export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"cinregistry"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Audit.KafkaBrokers = textutil.DedupeAndTrim(cfg.Audit.KafkaBrokers)
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the process runs with production defaults.
func (c Server) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c Server) validate() error {
	switch c.CIN.Counter {
	case CounterStore, CounterMemory:
	case CounterRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("CIN_COUNTER=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown CIN_COUNTER %q", c.CIN.Counter)
	}
	if c.CIN.MaxAttempts < 1 {
		return fmt.Errorf("CIN_MAX_ATTEMPTS must be at least 1")
	}
	if c.IsProduction() && c.JWTSigningKey == "dev-secret-key-change-in-production" {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	return nil
}
