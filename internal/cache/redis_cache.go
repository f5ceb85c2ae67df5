package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "referral_code:"

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache returns a Redis-backed ReferralCache with the given entry TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) ReferralCache {
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, email string) (*Snapshot, error) {
	payload, err := c.client.Get(ctx, keyPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		// Unreadable entries are treated as misses; the store is authoritative.
		return nil, nil
	}
	return &snap, nil
}

func (c *redisCache) Set(ctx context.Context, email string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+email, payload, c.ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, email string) error {
	return c.client.Del(ctx, keyPrefix+email).Err()
}
