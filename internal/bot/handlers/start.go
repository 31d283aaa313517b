package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/state"
)

// NewStartHandler greets the sender and resets any wizard in progress.
func NewStartHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		u, err := actor(c)
		if err != nil {
			return err
		}

		if err := d.FSM.SetState(RequestContext(c), u.ID, state.StateIdle, nil); err != nil {
			d.logger().Error("failed to reset user state", slog.Int64("user_id", u.ID), slog.Any("error", err))
			return err
		}

		text := d.text("start.welcome_back", u.DisplayName())
		if u.IsFresh() {
			text = d.text("start.welcome_fresh")
		}

		return send(c, text, d.Keyboard.MainMenu(u))
	}
}
