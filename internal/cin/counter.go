package cin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"cinregistry/pkg/platform/circuit"
)

// StoreCounter proposes the ledger maximum plus one. Concurrent callers may
// propose the same value; the ledger constraint rejects all but one.
type StoreCounter struct {
	ledger Ledger
}

func NewStoreCounter(ledger Ledger) *StoreCounter {
	return &StoreCounter{ledger: ledger}
}

func (c *StoreCounter) Next(ctx context.Context, prefix string) (int, error) {
	maxSeq, err := c.ledger.MaxSequence(ctx, prefix)
	if err != nil {
		return 0, err
	}
	return maxSeq + 1, nil
}

// MemoryCounter is a per-process counter seeded lazily from the ledger.
type MemoryCounter struct {
	ledger Ledger

	mu   sync.Mutex
	last map[string]int
}

func NewMemoryCounter(ledger Ledger) *MemoryCounter {
	return &MemoryCounter{ledger: ledger, last: make(map[string]int)}
}

func (c *MemoryCounter) Next(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[prefix]
	if !ok {
		maxSeq, err := c.ledger.MaxSequence(ctx, prefix)
		if err != nil {
			return 0, err
		}
		last = maxSeq
	}
	c.last[prefix] = last + 1
	return last + 1, nil
}

// Resync forgets the cached value so the next call reseeds from the ledger.
func (c *MemoryCounter) Resync(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, prefix)
	return nil
}

// raiseScript sets KEYS[1] to ARGV[1] unless it already holds a larger value.
var raiseScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if floor > current then
	redis.call('SET', KEYS[1], ARGV[1])
	return floor
end
return current
`)

// RedisCounter allocates sequences with INCR on a per-prefix key. Each prefix
// is raised to the ledger maximum before its first INCR in this process and
// again after every outage, since the ledger may have advanced meanwhile.
// While Redis is failing, sequences come from the ledger.
type RedisCounter struct {
	client   *redis.Client
	ledger   Ledger
	fallback *StoreCounter
	breaker  *circuit.Breaker
	logger   *slog.Logger

	mu     sync.Mutex
	synced map[string]bool
}

// RedisCounterOption configures a RedisCounter.
type RedisCounterOption func(*RedisCounter)

// WithCounterLogger sets the logger for breaker transitions.
func WithCounterLogger(logger *slog.Logger) RedisCounterOption {
	return func(c *RedisCounter) {
		c.logger = logger
	}
}

// WithBreaker replaces the default breaker, which opens after three failures.
func WithBreaker(b *circuit.Breaker) RedisCounterOption {
	return func(c *RedisCounter) {
		c.breaker = b
	}
}

// NewRedisCounter builds a counter that falls back to ledger while client fails.
func NewRedisCounter(client *redis.Client, ledger Ledger, opts ...RedisCounterOption) *RedisCounter {
	c := &RedisCounter{
		client:   client,
		ledger:   ledger,
		fallback: NewStoreCounter(ledger),
		synced:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuit.New("cin-redis-counter", circuit.WithFailureThreshold(3))
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func counterKey(prefix string) string {
	return "cinregistry:cin:seq:" + prefix
}

// Next returns the next sequence for prefix.
func (c *RedisCounter) Next(ctx context.Context, prefix string) (int, error) {
	seq, err := c.incr(ctx, prefix)
	if err != nil {
		_, change := c.breaker.RecordFailure()
		if change.Opened {
			c.logger.WarnContext(ctx, "redis cin counter unavailable, allocating from ledger",
				"prefix", prefix,
				"error", err,
			)
		}
		return c.fallback.Next(ctx, prefix)
	}

	usePrimary, change := c.breaker.RecordSuccess()
	if change.Closed {
		c.logger.InfoContext(ctx, "redis cin counter recovered", "prefix", prefix)
		c.forgetAll()
		return c.Next(ctx, prefix)
	}
	if !usePrimary {
		return c.fallback.Next(ctx, prefix)
	}
	return seq, nil
}

// Resync raises the prefix key to the ledger maximum.
func (c *RedisCounter) Resync(ctx context.Context, prefix string) error {
	if err := c.raise(ctx, prefix); err != nil {
		return err
	}
	c.mu.Lock()
	c.synced[prefix] = true
	c.mu.Unlock()
	return nil
}

func (c *RedisCounter) incr(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	synced := c.synced[prefix]
	c.mu.Unlock()

	if !synced {
		if err := c.Resync(ctx, prefix); err != nil {
			return 0, err
		}
	}
	n, err := c.client.Incr(ctx, counterKey(prefix)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", prefix, err)
	}
	return int(n), nil
}

func (c *RedisCounter) raise(ctx context.Context, prefix string) error {
	maxSeq, err := c.ledger.MaxSequence(ctx, prefix)
	if err != nil {
		return err
	}
	if err := raiseScript.Run(ctx, c.client, []string{counterKey(prefix)}, strconv.Itoa(maxSeq)).Err(); err != nil {
		return fmt.Errorf("seed %s: %w", prefix, err)
	}
	return nil
}

func (c *RedisCounter) forgetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.synced)
}
