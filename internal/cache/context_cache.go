// Package cache keeps formatted prompt context in redis so that busy
// companies do not hit the reports store on every chat turn.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const companyKeyPrefix = "wellness:context:company:"

// CompanyContextKey is the cache key of a company block built from the last
// days of reports.  Invalidate removes every key built here for a company.
func CompanyContextKey(companyID string, days int) string {
	return fmt.Sprintf("%s%s:%d", companyKeyPrefix, companyID, days)
}

// RedisContextCache stores context blocks as plain strings.
type RedisContextCache struct {
	client *redis.Client
	prefix string
}

// NewRedisContextCache wraps an existing client.  Keys are stored under
// prefix when one is given.
func NewRedisContextCache(client *redis.Client, prefix string) *RedisContextCache {
	return &RedisContextCache{client: client, prefix: prefix}
}

// NewClient opens a redis client and checks it with a PING.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisContextCache) key(k string) string {
	return c.prefix + k
}

// Get returns the cached value.  A missing key is not an error.
func (c *RedisContextCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value for ttl.
func (c *RedisContextCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Invalidate drops the cached company blocks for companyID, for every
// window length.
func (c *RedisContextCache) Invalidate(ctx context.Context, companyID string) error {
	pattern := c.key(companyKeyPrefix + companyID + ":*")
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
