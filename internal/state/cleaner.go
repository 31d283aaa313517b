package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner drops wizard states that were abandoned longer than ttl ago.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup performs a single sweep and returns the number of cleared states.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	states, err := c.storage.GetAllStates(ctx)
	if err != nil {
		c.log.Error("state cleaner failed to list states", slog.Any("error", err))
		return 0
	}

	cleared := 0
	for _, st := range states {
		if ctx.Err() != nil {
			break
		}
		if st == nil || c.now().Sub(st.UpdatedAt) <= c.ttl {
			continue
		}

		if err := c.storage.ClearState(ctx, st.UserID); err != nil {
			c.log.Error("state cleaner failed to clear state", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			continue
		}
		cleared++
		c.log.Info("stale wizard cleared", slog.Int64("user_id", st.UserID), slog.String("state", string(st.CurrentState)))
	}

	return cleared
}
