package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// NewCancelHandler abandons the current wizard and returns the user to the main menu.
func NewCancelHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		ack(c)

		userID := senderID(c)
		if err := d.FSM.ClearState(RequestContext(c), userID); err != nil {
			d.logger().Error("failed to clear user state", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		return send(c, d.text("common.cancelled"), d.Keyboard.MainMenu(CurrentUser(c)))
	}
}

// NewUnknownHandler answers input no route claimed.
func NewUnknownHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		if c.Callback() != nil {
			return c.Respond(&telebot.CallbackResponse{Text: d.text("common.unknown")})
		}
		return send(c, d.text("common.unknown"), d.Keyboard.MainMenu(CurrentUser(c)))
	}
}
