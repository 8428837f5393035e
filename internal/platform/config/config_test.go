package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 5, cfg.CIN.MaxAttempts)
		assert.Equal(t, CounterStore, cfg.CIN.Counter)
		assert.Equal(t, 5*time.Minute, cfg.Audit.GraceWindow)
		assert.Equal(t, 10*time.Second, cfg.Audit.RetryInterval)
		assert.Equal(t, 1024, cfg.Audit.PendingCapacity)
		assert.Equal(t, time.Minute, cfg.Access.RoleCacheTTL)
		assert.True(t, cfg.Tracing.Enabled)
		assert.Empty(t, cfg.Tracing.Endpoint)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("CINREG_ADDR", ":9090")
		t.Setenv("CIN_MAX_ATTEMPTS", "8")
		t.Setenv("CIN_COUNTER", "redis")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,k1:9092")
		t.Setenv("AUDIT_GRACE_WINDOW", "30s")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, 8, cfg.CIN.MaxAttempts)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
		assert.Equal(t, 30*time.Second, cfg.Audit.GraceWindow)
	})

	t.Run("redis counter without redis", func(t *testing.T) {
		t.Setenv("CIN_COUNTER", "redis")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "REDIS_URL")
	})

	t.Run("unknown counter", func(t *testing.T) {
		t.Setenv("CIN_COUNTER", "zookeeper")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("production needs a signing key", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "JWT_SIGNING_KEY")
	})
}
