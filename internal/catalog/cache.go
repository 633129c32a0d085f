package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache stores rendered public reads. Purge drops everything.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Purge(ctx context.Context)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) bool { return false }
func (noopCache) Set(context.Context, string, interface{})      {}
func (noopCache) Purge(context.Context)                         {}

// NoopCache disables caching
func NoopCache() Cache {
	return noopCache{}
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryCache is a process-local TTL cache
type MemoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string, dst interface{}) bool {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return false
	}
	return json.Unmarshal(e.data, dst) == nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Purge(context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}

// RedisCache shares cached reads between instances. Keys are namespaced by a
// generation counter so a purge is a single INCR.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) genKey() string {
	return c.prefix + ":gen"
}

func (c *RedisCache) key(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Result()
	if err == redis.Nil {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	return c.prefix + ":" + gen + ":" + key, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) bool {
	k, err := c.key(ctx, key)
	if err != nil {
		zap.L().Warn("redis cache unavailable", zap.Error(err), zap.String("namespace", "catalog"))
		return false
	}
	data, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) {
	k, err := c.key(ctx, key)
	if err != nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, k, data, c.ttl).Err(); err != nil {
		zap.L().Warn("redis cache set failed", zap.Error(err), zap.String("namespace", "catalog"))
	}
}

func (c *RedisCache) Purge(ctx context.Context) {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		zap.L().Warn("redis cache purge failed", zap.Error(err), zap.String("namespace", "catalog"))
	}
}
