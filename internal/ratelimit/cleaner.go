package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweepBatch = 100

// trimWindow drops hits older than the cutoff and removes the key once it is
// empty. Running both in one script keeps a hit that lands between the two
// steps from being deleted with the key.
var trimWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) == 0 then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// sweeper is implemented by limiters that keep windows in process memory.
type sweeper interface {
	Cleanup(maxAge time.Duration)
}

// Cleaner periodically drops stale sliding windows from Redis and from the
// in-memory fallback.
type Cleaner struct {
	client   *redis.Client
	local    sweeper
	maxAge   time.Duration
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewCleaner builds a Cleaner. maxAge should cover the longest configured
// window. fallback is swept only when it keeps local state.
func NewCleaner(client *redis.Client, fallback Limiter, maxAge time.Duration, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}

	c := &Cleaner{
		client:   client,
		maxAge:   maxAge,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
	if s, ok := fallback.(sweeper); ok {
		c.local = s
	}
	return c
}

// Run sweeps on every interval until ctx is cancelled. A non-positive
// interval disables the loop.
func (c *Cleaner) Run(ctx context.Context) {
	if c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("rate limit cleaner stopped")
			return
		case <-ticker.C:
			if c.local != nil {
				c.local.Cleanup(c.maxAge)
			}
			if removed := c.sweep(ctx); removed > 0 {
				c.log.Info("rate limit windows removed", slog.Int("keys", removed))
			}
		}
	}
}

// sweep trims every window key in Redis and returns how many keys were
// deleted because nothing recent was left in them.
func (c *Cleaner) sweep(ctx context.Context) int {
	if c.client == nil {
		return 0
	}

	// Exclusive bound, scores are milliseconds.
	cutoff := "(" + strconv.FormatInt(c.now().Add(-c.maxAge).UnixMilli(), 10)
	removed := 0

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", sweepBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		n, err := trimWindow.Run(ctx, c.client, []string{key}, cutoff).Int()
		if err != nil {
			c.log.Warn("rate limit window trim failed", slog.String("key", key), slog.Any("error", err))
			continue
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		c.log.Error("rate limit key scan failed", slog.Any("error", err))
	}

	return removed
}
