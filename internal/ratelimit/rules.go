package ratelimit

import (
	"errors"
	"sync"
	"time"

	"github.com/Proton-105/payout-bot/pkg/config"
)

// Rules holds the per-user limit and the identities exempt from it.
// Reload swaps them at runtime when the config file changes.
type Rules struct {
	mu        sync.RWMutex
	config    config.RateLimitConfig
	staff     []int64
	whitelist map[int64]struct{}
}

// NewRules builds rules from configuration. staff ids are exempt in addition
// to the configured whitelist.
func NewRules(cfg config.RateLimitConfig, staff ...int64) *Rules {
	r := &Rules{staff: staff}
	r.Reload(cfg)
	return r
}

// Reload replaces the configured limit and whitelist. Staff stay exempt.
func (r *Rules) Reload(cfg config.RateLimitConfig) {
	whitelist := make(map[int64]struct{}, len(cfg.Whitelist)+len(r.staff))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}
	for _, id := range r.staff {
		whitelist[id] = struct{}{}
	}

	r.mu.Lock()
	r.config = cfg
	r.whitelist = whitelist
	r.mu.Unlock()
}

// Enabled reports whether limiting is switched on.
func (r *Rules) Enabled() bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.whitelist[userID]
	return ok
}

// GetPerUserLimit returns the per-user rate limiting rule.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	r.mu.RLock()
	rule := r.config.PerUser
	r.mu.RUnlock()
	return parseRule(rule)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Limit <= 0 {
		return 0, 0, errors.New("limit must be positive")
	}
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	return rule.Limit, window, nil
}
