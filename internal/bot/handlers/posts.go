package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
	"github.com/Proton-105/payout-bot/internal/state"
)

// NewPostCallbackHandler dispatches the broadcast menu.
func NewPostCallbackHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		switch callbackData(c) {
		case keyboard.PostUsers:
			return d.begin(c, state.StatePostUsersText, nil, d.text("admin.ask_post"))
		case keyboard.PostChannel:
			return d.begin(c, state.StatePostChannelText, nil, d.text("admin.ask_post"))
		case keyboard.PostPublish:
			ack(c)
			published, err := d.Broadcast.PublishPending(RequestContext(c))
			if err != nil {
				return err
			}
			return c.Send(d.text("admin.pending_published", published))
		default:
			return NewUnknownHandler(d)(c)
		}
	}
}

// NewPostUsersStep queues the typed text for every user.
func NewPostUsersStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		admin, err := actor(c)
		if err != nil {
			return err
		}
		if strings.TrimSpace(c.Text()) == "" {
			return c.Send(d.text("admin.empty_post"))
		}

		if _, err := d.Broadcast.PostToUsers(RequestContext(c), admin, c.Text()); err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		return c.Send(d.text("admin.post_queued"))
	}
}

// NewPostChannelStep publishes the typed text to the configured channels.
func NewPostChannelStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		admin, err := actor(c)
		if err != nil {
			return err
		}
		if strings.TrimSpace(c.Text()) == "" {
			return c.Send(d.text("admin.empty_post"))
		}

		// Per-channel outcomes stay in logs and metrics.
		if _, err := d.Broadcast.PostToChannels(RequestContext(c), admin, c.Text()); err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		return c.Send(d.text("admin.post_published"))
	}
}
