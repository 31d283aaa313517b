package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/state"
)

// NewApplyHandler starts the application wizard from the main menu.
func NewApplyHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		return d.begin(c, state.StateApplicationMessage, nil, d.text("application.ask_message"))
	}
}

// NewApplicationMessageStep submits the typed text as a pending application.
func NewApplicationMessageStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		if strings.TrimSpace(c.Text()) == "" {
			return c.Send(d.text("application.empty_message"))
		}

		if _, err := d.Applications.Submit(RequestContext(c), senderID(c), c.Text()); err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		return send(c, d.text("application.submitted"), d.Keyboard.MainMenu(CurrentUser(c)))
	}
}
