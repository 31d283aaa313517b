package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter keeps sliding windows in process memory. It backs the
// adaptive limiter while Redis is unreachable.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	log     *slog.Logger
	now     func() time.Time
}

// NewMemoryLimiter returns an in-memory limiter implementation.
func NewMemoryLimiter(log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		buckets: make(map[string][]time.Time),
		log:     log,
		now:     time.Now,
	}
}

// Check records a hit for key unless the window is already full.
// Rejected hits are not counted.
func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := dropBefore(m.buckets[key], now.Add(-window))
	allowed := len(hits) < limit
	if allowed {
		hits = append(hits, now)
	}
	m.buckets[key] = hits

	result := &Result{
		Allowed:   allowed,
		Remaining: remaining(limit, len(hits)),
		ResetAt:   now.Add(window),
	}
	if len(hits) > 0 {
		result.ResetAt = hits[0].Add(window)
	}

	if !allowed {
		return result, ErrLimitExceeded
	}
	return result, nil
}

// Cleanup removes windows whose latest hit is older than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}

	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, hits := range m.buckets {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(m.buckets, key)
			removed++
		}
	}

	if removed > 0 {
		m.log.Debug("in-memory rate limit windows dropped", slog.Int("count", removed))
	}
}

// dropBefore discards hits older than start, reusing the backing array.
func dropBefore(hits []time.Time, start time.Time) []time.Time {
	i := 0
	for i < len(hits) && hits[i].Before(start) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
