//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager starts each container at most once per test binary so suites in a
// package share them.
type Manager struct {
	postgresOnce sync.Once
	postgres     *PostgresContainer
	redisOnce    sync.Once
	redis        *RedisContainer
	kafkaOnce    sync.Once
	kafka        *KafkaContainer
}

var shared Manager

// Postgres returns the shared Postgres container, starting it on first use.
func Postgres(t *testing.T) *PostgresContainer {
	t.Helper()
	shared.postgresOnce.Do(func() {
		shared.postgres = NewPostgresContainer(t)
	})
	if shared.postgres == nil {
		t.Fatal("postgres container failed to start earlier")
	}
	return shared.postgres
}

// Redis returns the shared Redis container, starting it on first use.
func Redis(t *testing.T) *RedisContainer {
	t.Helper()
	shared.redisOnce.Do(func() {
		shared.redis = NewRedisContainer(t)
	})
	if shared.redis == nil {
		t.Fatal("redis container failed to start earlier")
	}
	return shared.redis
}

// Kafka returns the shared Redpanda broker, starting it on first use.
func Kafka(t *testing.T) *KafkaContainer {
	t.Helper()
	shared.kafkaOnce.Do(func() {
		shared.kafka = NewKafkaContainer(t)
	})
	if shared.kafka == nil {
		t.Fatal("redpanda container failed to start earlier")
	}
	return shared.kafka
}
