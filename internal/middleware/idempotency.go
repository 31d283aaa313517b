package middleware

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/handlers"
	"github.com/Proton-105/payout-bot/internal/idempotency"
)

// Idempotency ensures handlers execute at most once per Telegram update.
// Failed updates are not recorded, so Telegram's redelivery runs them again.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := idempotency.UpdateKey(c.Update())
			if key == "" {
				return next(c)
			}

			result, err := manager.Execute(handlers.RequestContext(c), key, idempotency.DefaultTTL, func(context.Context) (interface{}, error) {
				return nil, next(c)
			})
			switch {
			case errors.Is(err, idempotency.ErrRequestInProgress):
				log.Debug("update is already being handled", slog.String("key", key))
			case err != nil:
				return err
			case result.FromCache:
				log.Info("redelivered update ignored", slog.Int("update_id", c.Update().ID))
			}

			return nil
		}
	}
}
