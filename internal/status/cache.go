package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// Cache stores computed per-accountant status rows. Filtering and summary
// always happen after retrieval, so one cached entry serves every filter.
type Cache interface {
	Get(ctx context.Context, accountantID id.AccountantID) ([]ClientStatus, error)
	Set(ctx context.Context, accountantID id.AccountantID, clients []ClientStatus) error
	Invalidate(ctx context.Context, accountantID id.AccountantID) error
}

// RedisCache caches report rows with a short TTL. Writes through the domain
// services invalidate eagerly, the TTL is the backstop.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(accountantID id.AccountantID) string {
	return "status:report:" + accountantID.String()
}

func (c *RedisCache) Get(ctx context.Context, accountantID id.AccountantID) ([]ClientStatus, error) {
	payload, err := c.client.Get(ctx, cacheKey(accountantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get cached report: %w", err)
	}
	var clients []ClientStatus
	if err := json.Unmarshal(payload, &clients); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return clients, nil
}

func (c *RedisCache) Set(ctx context.Context, accountantID id.AccountantID, clients []ClientStatus) error {
	payload, err := json.Marshal(clients)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(accountantID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, accountantID id.AccountantID) error {
	if err := c.client.Del(ctx, cacheKey(accountantID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached report: %w", err)
	}
	return nil
}
