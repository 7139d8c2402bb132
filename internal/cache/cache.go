// SPDX-License-Identifier: Apache-2.0

// Package cache stores extraction results keyed by their OCR payload and the
// fingerprint of the engine that produced them. Extraction is deterministic,
// so a hit is equal to a fresh run by an engine with that fingerprint.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	// Get decodes the value stored under key into dest, or returns ErrCacheMiss.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
}

// Key derives the cache key for an OCR payload processed by the engine
// identified by fingerprint. The format hint is part of the key because it
// can change which decoder runs.
func Key(fingerprint, format string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(format))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

type Option func(*RedisCache)

func WithPrefix(prefix string) Option {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// WithTTL sets the expiry of stored entries. Zero keeps entries until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		c.ttl = ttl
	}
}

func NewRedisCache(client redis.Cmdable, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, prefix: "rxverify:", ttl: 24 * time.Hour}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRedisClient opens a client for addr and checks it is reachable.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode cached value: %w", err)
	}
	return nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Nop
// ---------------------------------------------------------------------------

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) error { return ErrCacheMiss }

func (Nop) Set(context.Context, string, any) error { return nil }
