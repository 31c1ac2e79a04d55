package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReferenceCache caches slow-changing reference data fetched from the tax
// authority (district codes, product tax codes). Values are JSON-encoded.
type ReferenceCache interface {
	// Get unmarshals the cached value into dest; the bool is false on miss
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores a value with a TTL
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisReferenceCache is a ReferenceCache backed by Redis, shared across
// instances.
type RedisReferenceCache struct {
	client *redis.Client
	prefix string
}

// NewRedisReferenceCache creates a Redis-backed reference cache
func NewRedisReferenceCache(client *redis.Client, prefix string) *RedisReferenceCache {
	if prefix == "" {
		prefix = "mnpay:ref"
	}
	return &RedisReferenceCache{client: client, prefix: prefix}
}

func (c *RedisReferenceCache) key(key string) string {
	return c.prefix + ":" + key
}

// Get fetches and unmarshals a cached value
func (c *RedisReferenceCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reference cache get: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("reference cache decode: %w", err)
	}
	return true, nil
}

// Set marshals and stores a value with a TTL
func (c *RedisReferenceCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("reference cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("reference cache set: %w", err)
	}
	return nil
}

// InMemoryReferenceCache is a ReferenceCache for single-instance
// deployments and tests.
type InMemoryReferenceCache struct {
	mu      sync.RWMutex
	entries map[string]refEntry
}

type refEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewInMemoryReferenceCache creates an empty in-memory reference cache
func NewInMemoryReferenceCache() *InMemoryReferenceCache {
	return &InMemoryReferenceCache{entries: make(map[string]refEntry)}
}

// Get fetches and unmarshals a cached value
func (c *InMemoryReferenceCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, fmt.Errorf("reference cache decode: %w", err)
	}
	return true, nil
}

// Set marshals and stores a value with a TTL
func (c *InMemoryReferenceCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("reference cache encode: %w", err)
	}
	c.mu.Lock()
	c.entries[key] = refEntry{data: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

var (
	_ ReferenceCache = (*RedisReferenceCache)(nil)
	_ ReferenceCache = (*InMemoryReferenceCache)(nil)
)
