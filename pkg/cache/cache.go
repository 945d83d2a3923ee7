package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eventprosnz/eventpros-backend/pkg/redis"
)

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// JSON stores read models as JSON documents in Redis.
type JSON struct {
	store store
}

// NewJSON wires the cache to a namespaced redis client.
func NewJSON(client store) (*JSON, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &JSON{store: client}, nil
}

// Key builds a namespaced cache key.
func (c *JSON) Key(parts ...string) string {
	return c.store.CacheKey(parts...)
}

// Get decodes the value at key into dest. found is false on a miss.
func (c *JSON) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set encodes val and stores it with ttl.
func (c *JSON) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	payload, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, payload, ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete drops the given keys.
func (c *JSON) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.store.Del(ctx, keys...)
}
