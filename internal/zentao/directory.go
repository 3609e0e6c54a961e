package zentao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"zentaohelper/internal/logging"
)

// DirectoryCache stores the user directory between lookups. A TTL of zero
// keeps the directory for the lifetime of the cache.
type DirectoryCache interface {
	Get(ctx context.Context) (*Directory, bool)
	Put(ctx context.Context, dir *Directory)
	Invalidate(ctx context.Context)
}

// MemoryCache keeps the directory in process memory.
type MemoryCache struct {
	mu     sync.Mutex
	dir    *Directory
	stored time.Time
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context) (*Directory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dir == nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(c.stored) > c.ttl {
		c.dir = nil
		return nil, false
	}
	return c.dir, true
}

func (c *MemoryCache) Put(_ context.Context, dir *Directory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir = dir
	c.stored = c.now()
}

func (c *MemoryCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir = nil
}

// RedisCache shares the directory across CLI invocations and server replicas.
// Redis errors degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache connects lazily to the Redis instance at redisURL.
func NewRedisCache(redisURL, namespace string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisCache{
		client: redis.NewClient(opts),
		key:    "zentao:users:" + namespace,
		ttl:    ttl,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context) (*Directory, bool) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.APIWarn("redis directory lookup failed: %v", err)
		}
		return nil, false
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		logging.APIWarn("discarding corrupt cached directory: %v", err)
		return nil, false
	}
	return NewDirectory(users), true
}

func (c *RedisCache) Put(ctx context.Context, dir *Directory) {
	data, err := json.Marshal(dir.Users)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		logging.APIWarn("redis directory store failed: %v", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		logging.APIWarn("redis directory invalidate failed: %v", err)
	}
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
