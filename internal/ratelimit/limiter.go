// Package ratelimit throttles chat updates per sender with a sliding window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const keyPrefix = "ratelimit:"

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the oldest counted hit leaves the window.
	ResetAt time.Time
}

// Limiter describes a rate-limiting strategy interface.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded indicates the rate limit has been reached for the key.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// UserKey names the window that counts updates from one Telegram user.
func UserKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
