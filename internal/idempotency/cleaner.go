package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner removes idempotency keys that would otherwise never expire: records
// whose TTL was lost and keys carrying a TTL above maxTTL.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	maxTTL   time.Duration
	interval time.Duration
}

// NewCleaner builds a Cleaner. maxTTL is the longest TTL the bot ever sets.
func NewCleaner(client *redis.Client, log *slog.Logger, maxTTL, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if maxTTL <= 0 {
		maxTTL = DefaultTTL
	}

	return &Cleaner{
		client:   client,
		log:      log,
		maxTTL:   maxTTL,
		interval: interval,
	}
}

// Run sweeps on every interval until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.client == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Cleanup(ctx); removed > 0 {
				c.log.Info("stale idempotency keys removed", slog.Int("count", removed))
			}
		}
	}
}

// Cleanup performs one sweep and returns the number of deleted keys.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			c.log.Error("idempotency cleaner scan failed", slog.Any("error", err))
			return removed
		}

		for _, key := range keys {
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				c.log.Warn("failed to get key ttl", slog.String("key", key), slog.Any("error", err))
				continue
			}

			// -2 means the key vanished between SCAN and TTL.
			if ttl == -2 || (ttl >= 0 && ttl <= c.maxTTL) {
				continue
			}

			if err := c.client.Del(ctx, key).Err(); err != nil {
				c.log.Warn("failed to delete stale idempotency key", slog.String("key", key), slog.Any("error", err))
				continue
			}
			removed++
		}

		if next == 0 {
			return removed
		}
		cursor = next
	}
}
