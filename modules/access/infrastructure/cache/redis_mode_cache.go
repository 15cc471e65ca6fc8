package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

const defaultModeKeyPrefix = "tenantgate:mode:"

// redisCmds is the slice of the go-redis client the cache needs.
type redisCmds interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisModeCache shares the isolation-mode cache across processes. The Del
// in Invalidate is synchronous, so the invalidation-after-commit ordering of
// a mode change holds for every process reading through this cache.
type RedisModeCache struct {
	client redisCmds
	prefix string
}

func NewRedisModeCache(client redisCmds, prefix string) *RedisModeCache {
	if prefix == "" {
		prefix = defaultModeKeyPrefix
	}
	return &RedisModeCache{client: client, prefix: prefix}
}

func (c *RedisModeCache) key(tenantID string) string {
	return c.prefix + tenantID
}

func (c *RedisModeCache) Get(ctx context.Context, tenantID string) (types.IsolationMode, bool, error) {
	val, err := c.client.Get(ctx, c.key(tenantID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return types.IsolationMode(val), true, nil
}

func (c *RedisModeCache) Set(ctx context.Context, tenantID string, mode types.IsolationMode, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(tenantID), string(mode), ttl).Err()
}

func (c *RedisModeCache) Invalidate(ctx context.Context, tenantID string) error {
	return c.client.Del(ctx, c.key(tenantID)).Err()
}

var _ ports.ModeCache = (*RedisModeCache)(nil)
