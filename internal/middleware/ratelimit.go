package middleware

import (
	"errors"
	"log/slog"
	"math"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
	now     func() time.Time
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
		now:     time.Now,
	}
}

// Handle rejects updates from senders over their per-user budget. Limiter
// failures let the update through.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		if m.limiter == nil || !m.rules.Enabled() {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		userID := sender.ID
		if m.rules.IsWhitelisted(userID) {
			return next(c)
		}

		limit, window, err := m.rules.GetPerUserLimit()
		if err != nil {
			m.log.Error("failed to load per-user rate limit", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		key := ratelimit.UserKey(userID)
		result, err := m.limiter.Check(handlers.RequestContext(c), key, limit, window)
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded), err == nil && result != nil && !result.Allowed:
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID))
			return apperrors.NewRateLimitError(m.retryAfter(result))
		case err != nil:
			m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
		}

		return next(c)
	}
}

func (m *RateLimitMiddleware) retryAfter(result *ratelimit.Result) int {
	if result == nil {
		return 1
	}
	seconds := int(math.Ceil(result.ResetAt.Sub(m.now()).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
