// Package cache wraps a saved-response store with a Redis read-through cache.
// Saved responses never change once written, so cached entries never go
// stale and are only evicted by TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/idempotency"
)

// IdempotencyCache implements idempotency.Store in front of another Store.
// Redis failures are logged and the backing store is used instead.
type IdempotencyCache struct {
	next   idempotency.Store
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewIdempotencyCache wraps next. A non-positive ttl defaults to 24h.
func NewIdempotencyCache(next idempotency.Store, client *redis.Client, ttl time.Duration, log *logger.Logger) *IdempotencyCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyCache{next: next, client: client, ttl: ttl, log: log}
}

// CacheKey is the Redis key holding a saved response.
func CacheKey(callerID uuid.UUID, key domain.IdempotencyKey) string {
	return fmt.Sprintf("idempotency:%s:%s", callerID, key)
}

func (c *IdempotencyCache) Get(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey) (*domain.SavedResponse, error) {
	ck := CacheKey(callerID, key)
	data, err := c.client.Get(ctx, ck).Bytes()
	switch {
	case err == nil:
		var resp domain.SavedResponse
		if jerr := json.Unmarshal(data, &resp); jerr == nil {
			return &resp, nil
		}
		c.log.Warn("discarding undecodable cached response", "key", ck)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("idempotency cache read failed", "error", err)
	}

	resp, err := c.next.Get(ctx, callerID, key)
	if err != nil || resp == nil {
		return resp, err
	}
	c.fill(ctx, ck, resp)
	return resp, nil
}

func (c *IdempotencyCache) Put(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey, resp domain.SavedResponse) (*domain.SavedResponse, error) {
	stored, err := c.next.Put(ctx, callerID, key, resp)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, CacheKey(callerID, key), stored)
	return stored, nil
}

func (c *IdempotencyCache) fill(ctx context.Context, ck string, resp *domain.SavedResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.log.Warn("failed to encode response for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, ck, data, c.ttl).Err(); err != nil {
		c.log.Warn("idempotency cache write failed", "error", err)
	}
}
