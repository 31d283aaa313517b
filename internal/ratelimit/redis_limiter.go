package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, counts it and records the hit only when
// there is room, so rejected updates do not extend a sender's penalty.
// Returns {allowed, count, oldest score}.
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
	count = count + 1
	allowed = 1
end
redis.call('PEXPIRE', KEYS[1], ARGV[5])
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local oldestScore = ARGV[2]
if oldest[2] then
	oldestScore = oldest[2]
end
return {allowed, count, oldestScore}
`)

// RedisLimiter implements Limiter using Redis sorted sets scored in
// milliseconds, shared by every bot replica.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter implementation.
func NewRedisLimiter(client *redis.Client, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLimiter{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Check evaluates the sliding window for key atomically.
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("redis client is not configured for rate limiting")
	}

	now := l.now()
	if limit <= 0 {
		return &Result{Allowed: false, ResetAt: now.Add(window)}, nil
	}

	nowMs := now.UnixMilli()
	args := []interface{}{
		nowMs - window.Milliseconds(),
		nowMs,
		limit,
		uuid.NewString(),
		(window * 2).Milliseconds(),
	}

	values, err := slidingWindow.Run(ctx, l.client, []string{keyPrefix + key}, args...).Slice()
	if err != nil {
		l.log.Error("rate limiter script failed", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}
	if len(values) != 3 {
		return nil, errors.New("rate limiter script returned an unexpected reply")
	}

	allowed, _ := values[0].(int64)
	count, _ := values[1].(int64)
	oldest := parseScore(values[2], nowMs)

	return &Result{
		Allowed:   allowed == 1,
		Remaining: remaining(limit, int(count)),
		ResetAt:   time.UnixMilli(oldest).Add(window),
	}, nil
}

func parseScore(v interface{}, fallback int64) int64 {
	switch s := v.(type) {
	case int64:
		return s
	case string:
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(ms)
		}
	}
	return fallback
}
