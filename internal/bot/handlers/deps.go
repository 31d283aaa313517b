package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
	"github.com/Proton-105/payout-bot/internal/domain"
	apperrors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/i18n"
	"github.com/Proton-105/payout-bot/internal/state"
)

// Deps carries the collaborators handlers draw from.
type Deps struct {
	Users        UserService
	Applications ApplicationService
	Payouts      PayoutService
	Broadcast    BroadcastService
	Notifier     Notifier
	FSM          state.StateMachine
	Keyboard     *keyboard.Builder
	T            i18n.Translator
	Log          *slog.Logger
	Now          func() time.Time
}

func (d *Deps) text(key string, args ...any) string {
	if len(args) == 0 {
		if d.T == nil {
			return key
		}
		return d.T.T(key)
	}
	return i18n.Tf(d.T, key, args...)
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func (d *Deps) notify(ctx context.Context, userID int64, key string, args ...any) {
	if d.Notifier == nil {
		return
	}
	d.Notifier.NotifyUser(ctx, userID, d.text(key, args...))
}

// send replies with text and an optional markup.
func send(c telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	if markup == nil {
		return c.Send(text)
	}
	return c.Send(text, markup)
}

// ack stops the loading spinner on the pressed inline button.
func ack(c telebot.Context) {
	if c.Callback() != nil {
		_ = c.Respond()
	}
}

// callbackData returns the payload part of the pressed button.
func callbackData(c telebot.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	_, data, err := keyboard.DecodeCallback(cb.Data)
	if err != nil {
		return ""
	}
	return data
}

func senderID(c telebot.Context) int64 {
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}

// actor returns the authenticated sender or fails the update.
func actor(c telebot.Context) (*domain.User, error) {
	if u := CurrentUser(c); u != nil {
		return u, nil
	}
	return nil, errors.New("handler invoked without an authenticated user")
}

// begin starts a wizard at s and prompts for the first value.
func (d *Deps) begin(c telebot.Context, s state.State, updates map[string]interface{}, prompt string) error {
	ack(c)

	if err := d.FSM.TransitionTo(RequestContext(c), senderID(c), s, updates); err != nil {
		return err
	}

	return send(c, prompt, d.Keyboard.CancelButton())
}

// fail handles an error from a wizard step. Input errors keep the step and
// re-prompt; anything else ends the wizard and passes err on.
func (d *Deps) fail(c telebot.Context, err error) error {
	if apperrors.IsInvalidInput(err) {
		return c.Send(apperrors.FromDomain(err).UserMessage)
	}

	d.done(c)
	return err
}

// done ends the wizard of the sender.
func (d *Deps) done(c telebot.Context) {
	if err := d.FSM.ClearState(RequestContext(c), senderID(c)); err != nil {
		d.logger().Warn("failed to clear wizard state", slog.Int64("user_id", senderID(c)), slog.Any("error", err))
	}
}
