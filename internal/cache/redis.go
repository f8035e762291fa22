package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to the Redis instance named by REDIS_ADDR. Returns
// (nil, nil) when the variable is unset: the catalog cache is optional and
// the read path falls back to Postgres.
func InitRedis(ctx context.Context) (*redis.Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

const versionKey = "catalog:ver"

// PageCache is a cache-aside store for serialized catalog pages. Keys embed
// a version counter; Invalidate bumps the counter so every cached page from
// before a projection rebuild becomes unreachable at once, without scanning
// for keys. Stale entries age out via TTL.
//
// A nil *PageCache, or one built over a nil client, disables caching: every
// method is a no-op and Get never hits.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PageCache{client: client, ttl: ttl}
}

func (c *PageCache) enabled() bool {
	return c != nil && c.client != nil
}

// Key builds the versioned cache key for a query fingerprint.
func (c *PageCache) Key(ctx context.Context, fingerprint string) string {
	if !c.enabled() {
		return ""
	}
	ver, err := c.client.Get(ctx, versionKey).Result()
	if err != nil {
		ver = "0"
	}
	sum := sha256.Sum256([]byte(fingerprint))
	return "catalog:v" + ver + ":" + hex.EncodeToString(sum[:8])
}

// Get returns the cached payload for key, or ok=false on miss, error, or a
// disabled cache.
func (c *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled() || key == "" {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Set stores a payload under key. Write failures are swallowed; the read
// path does not depend on the cache.
func (c *PageCache) Set(ctx context.Context, key string, payload []byte) {
	if !c.enabled() || key == "" {
		return
	}
	c.client.Set(ctx, key, payload, c.ttl)
}

// Invalidate makes all currently cached pages unreachable.
func (c *PageCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	c.client.Incr(ctx, versionKey)
}
