package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"travi_content/internal/adapters/observability"
)

// Cache stores site pages as JSON under a key prefix.
type Cache struct {
	c      *redis.Client
	prefix string
}

func New(addr, pass string, db int) *Cache {
	return NewFromClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), "travi:")
}

func NewFromClient(c *redis.Client, prefix string) *Cache {
	return &Cache{c: c, prefix: prefix}
}

// Ping reports whether the server is reachable.
func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("redis", "error")
		return false, err
	}
	if err := json.Unmarshal(v, dst); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = r.c.Del(ctx, r.prefix+key).Err()
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	observability.ObserveCache("redis", "hit")
	return true, nil
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, r.prefix+key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, r.prefix+key).Err()
}
