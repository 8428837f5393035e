package access

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	id "cinregistry/pkg/domain"
)

const defaultRoleCacheTTL = time.Minute

type cachedRole struct {
	role      Role
	found     bool
	expiresAt time.Time
}

// CachedRegistry keeps resolved roles in process for a bounded TTL. Concurrent
// misses for the same user collapse into one lookup. A lookup that overlaps an
// Invalidate is returned to its callers but not cached.
type CachedRegistry struct {
	next    Registry
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[id.UserID]cachedRole
	gen     uint64
}

func NewCachedRegistry(next Registry, ttl time.Duration) *CachedRegistry {
	if ttl <= 0 {
		ttl = defaultRoleCacheTTL
	}
	return &CachedRegistry{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[id.UserID]cachedRole),
	}
}

func (c *CachedRegistry) RoleOf(ctx context.Context, userID id.UserID) (Role, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.role, entry.found, nil
	}

	v, err, _ := c.group.Do(userID.String(), func() (any, error) {
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		role, found, err := c.next.RoleOf(ctx, userID)
		if err != nil {
			return nil, err
		}
		entry := cachedRole{role: role, found: found, expiresAt: c.now().Add(c.ttl)}
		c.mu.Lock()
		if c.gen == gen {
			c.entries[userID] = entry
		}
		c.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return "", false, err
	}
	resolved := v.(cachedRole)
	return resolved.role, resolved.found, nil
}

// Invalidate drops the cached role here and in any caching layer below.
func (c *CachedRegistry) Invalidate(ctx context.Context, userID id.UserID) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.gen++
	c.mu.Unlock()
	c.group.Forget(userID.String())

	if inv, ok := c.next.(Invalidator); ok {
		return inv.Invalidate(ctx, userID)
	}
	return nil
}

const noRole = "-"

// RedisRegistry shares resolved roles across instances through Redis.
type RedisRegistry struct {
	client *redis.Client
	next   Registry
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, next Registry, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = defaultRoleCacheTTL
	}
	return &RedisRegistry{client: client, next: next, ttl: ttl}
}

func roleKey(userID id.UserID) string {
	return "cinregistry:role:" + userID.String()
}

func (r *RedisRegistry) RoleOf(ctx context.Context, userID id.UserID) (Role, bool, error) {
	cached, err := r.client.Get(ctx, roleKey(userID)).Result()
	switch {
	case err == nil:
		if cached == noRole {
			return "", false, nil
		}
		return Role(cached), true, nil
	case !errors.Is(err, redis.Nil):
		// Cache outage: serve from the source of truth without caching.
		return r.next.RoleOf(ctx, userID)
	}

	role, found, err := r.next.RoleOf(ctx, userID)
	if err != nil {
		return "", false, err
	}
	value := string(role)
	if !found {
		value = noRole
	}
	_ = r.client.Set(ctx, roleKey(userID), value, r.ttl).Err()
	return role, found, nil
}

func (r *RedisRegistry) Invalidate(ctx context.Context, userID id.UserID) error {
	if err := r.client.Del(ctx, roleKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached role: %w", err)
	}
	return nil
}
