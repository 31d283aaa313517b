// Package usercache keeps recently resolved users in Redis so the authorization
// middleware does not hit PostgreSQL on every update.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Proton-105/payout-bot/internal/domain"
	"github.com/Proton-105/payout-bot/pkg/redis"
)

// Store is the key-value subset the cache needs; redis.MetricsClient satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache provides Redis-backed caching for user profiles.
type Cache struct {
	store Store
	ttl   time.Duration
}

// NewCache constructs a user cache. A nil store disables caching.
func NewCache(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// Get fetches a cached user. A miss yields (nil, nil).
func (c *Cache) Get(ctx context.Context, userID int64) (*domain.User, error) {
	if c == nil || c.store == nil {
		return nil, nil
	}

	data, err := c.store.Get(ctx, cacheKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached user: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}

	return &user, nil
}

// Set stores the user for the configured TTL.
func (c *Cache) Set(ctx context.Context, user *domain.User) error {
	if c == nil || c.store == nil || user == nil || c.ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user for cache: %w", err)
	}

	if err := c.store.Set(ctx, cacheKey(user.ID), payload, c.ttl); err != nil {
		return fmt.Errorf("set cached user: %w", err)
	}

	return nil
}

// Invalidate drops the cached entry; every write path calls it.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.store == nil {
		return nil
	}

	if err := c.store.Delete(ctx, cacheKey(userID)); err != nil {
		return fmt.Errorf("delete cached user: %w", err)
	}

	return nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("user:profile:%d", userID)
}
