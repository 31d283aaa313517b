package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/handlers"
	"github.com/Proton-105/payout-bot/internal/domain"
	errors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/i18n"
	"github.com/Proton-105/payout-bot/pkg/logger"
)

const genericErrorText = "Произошла ошибка. Попробуйте позже"

// RecoveryMiddleware turns a handler panic into an error so the update is reported as failed.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					err = fmt.Errorf("panic recovered: %v", r)
					if errHandler != nil {
						_, _ = errHandler.Handle(handlers.RequestContext(c), err)
					}

					if c != nil {
						if sendErr := c.Send(genericErrorText); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports handler failures and tells the user. Expected
// outcomes such as bad input or a denied action end the update normally;
// anything else is passed on so the transport reports a failure.
func ErrorHandlingMiddleware(errHandler *errors.Handler, t i18n.Translator) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := genericErrorText
			if errHandler != nil {
				if msg, _ := errHandler.Handle(handlers.RequestContext(c), err); msg != "" {
					userMsg = msg
				}
			}

			if c.Callback() != nil {
				_ = c.Respond()
			}

			if errors.IsUserFacing(err) {
				_ = c.Send(userMsg)
				return nil
			}

			if t != nil {
				userMsg = t.T("common.error")
			}
			_ = c.Send(userMsg)
			return err
		}
	}
}

// LoggingMiddleware tags each update with a correlation id and logs its outcome.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()

			ctx := handlers.RequestContext(c)
			correlationID := logger.CorrelationIDFromContext(ctx)
			if correlationID == "" {
				correlationID = uuid.NewString()
				handlers.WithRequestContext(c, logger.WithCorrelationID(ctx, correlationID))
			}

			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			action := "message"
			if cb := c.Callback(); cb != nil {
				action = cb.Data
			} else if cmd := commandName(c.Text()); cmd != "" {
				action = cmd
			}

			err := next(c)

			attrs := []any{
				slog.Int("update_id", c.Update().ID),
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.String("correlation_id", correlationID),
			}
			if err != nil {
				log.Warn("update failed", append(attrs, slog.Any("error", err))...)
			} else {
				log.Debug("handled update", attrs...)
			}

			return err
		}
	}
}

// UserResolver registers or loads the sender of an update.
type UserResolver interface {
	GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.User, error)
}

// AuthMiddleware attaches the sender's user record to the context, registering first-time senders.
func AuthMiddleware(users UserResolver, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			sender := c.Sender()
			if users == nil || sender == nil || sender.IsBot {
				return next(c)
			}

			u, err := users.GetOrCreate(handlers.RequestContext(c), sender)
			if err != nil {
				log.Error("failed to resolve user", slog.Int64("user_id", sender.ID), slog.Any("error", err))
				return err
			}

			handlers.SetCurrentUser(c, u)
			return next(c)
		}
	}
}

// RequireRole admits only users whose role satisfies allowed. Everyone else
// gets a "no access" reply and the handler is skipped.
func RequireRole(allowed func(domain.Role) bool, t i18n.Translator) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			if u := handlers.CurrentUser(c); u != nil && allowed(u.Role) {
				return next(c)
			}

			return deny(c, translate(t, "common.no_access"))
		}
	}
}

// RequireAdmin admits admins and the superadmin.
func RequireAdmin(t i18n.Translator) handlers.Middleware {
	return RequireRole(domain.Role.AtLeastAdmin, t)
}

// RequireSuperadmin admits only the superadmin.
func RequireSuperadmin(t i18n.Translator) handlers.Middleware {
	return RequireRole(domain.Role.IsSuperadmin, t)
}

// RequireNotBanned blocks self-service actions while a ban is active.
func RequireNotBanned(t i18n.Translator, now func() time.Time) handlers.Middleware {
	if now == nil {
		now = time.Now
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			u := handlers.CurrentUser(c)
			if u == nil || !u.IsBanned(now()) {
				return next(c)
			}

			until := u.BannedUntil.UTC().Format("02.01.2006 15:04 UTC")
			return deny(c, i18n.Tf(t, "common.banned", until))
		}
	}
}

func deny(c telebot.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Send(text)
}

func translate(t i18n.Translator, key string) string {
	if t == nil {
		return key
	}
	return t.T(key)
}
