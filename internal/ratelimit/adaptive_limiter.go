package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendRedis  = "redis"
	backendMemory = "memory"
)

var (
	rateLimitChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	rateLimitDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_degraded",
		Help: "1 while the limiter runs on the in-memory fallback.",
	})
)

// AdaptiveLimiter delegates to the shared Redis limiter and switches to a
// stricter per-process limiter while Redis fails. Each replica then allows
// half the configured budget.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
	degraded atomic.Bool
}

// NewAdaptiveLimiter creates a limiter that adapts between Redis and in-memory backends.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Check evaluates the limit on the primary backend, falling back to memory on errors.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil || errors.Is(err, ErrLimitExceeded) {
		a.restore()
		return a.outcome(backendRedis, result, err)
	}

	a.degrade(err)

	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	result, err = a.fallback.Check(ctx, key, fallbackLimit, window)
	if err != nil && !errors.Is(err, ErrLimitExceeded) {
		return result, err
	}
	return a.outcome(backendMemory, result, err)
}

func (a *AdaptiveLimiter) outcome(backend string, result *Result, err error) (*Result, error) {
	if err == nil && result != nil && result.Allowed {
		rateLimitChecksTotal.WithLabelValues(backend, "allowed").Inc()
		return result, nil
	}

	rateLimitChecksTotal.WithLabelValues(backend, "rejected").Inc()
	return result, ErrLimitExceeded
}

func (a *AdaptiveLimiter) degrade(err error) {
	if a.degraded.CompareAndSwap(false, true) {
		rateLimitDegraded.Set(1)
		a.log.Warn("redis limiter failed, falling back to in-memory", slog.Any("error", err))
	}
}

func (a *AdaptiveLimiter) restore() {
	if a.degraded.CompareAndSwap(true, false) {
		rateLimitDegraded.Set(0)
		a.log.Info("redis limiter recovered")
	}
}
