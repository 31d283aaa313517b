package handlers

import (
	"fmt"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
	"github.com/Proton-105/payout-bot/internal/domain"
	"github.com/Proton-105/payout-bot/internal/state"
)

const historyLimit = 10

// NewProfileHandler shows the sender's profile card.
func NewProfileHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		u, err := actor(c)
		if err != nil {
			return err
		}

		ack(c)
		return send(c, d.profileCard(u), d.Keyboard.Profile())
	}
}

func (d *Deps) profileCard(u *domain.User) string {
	name := u.Name
	if strings.TrimSpace(name) == "" {
		name = d.text("common.not_set")
	}
	wallet := u.Contact
	if strings.TrimSpace(wallet) == "" {
		wallet = d.text("common.not_set")
	}

	return d.text("profile.card",
		name,
		wallet,
		u.Balance.StringFixed(2),
		d.Payouts.Currency(),
		d.text("roles."+string(u.Role)),
		u.Rank.Title(),
	)
}

// NewProfileCallbackHandler dispatches the buttons under the profile card.
func NewProfileCallbackHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		switch callbackData(c) {
		case keyboard.ProfileEditName:
			return d.begin(c, state.StateProfileName, nil, d.text("profile.ask_name"))
		case keyboard.ProfileEditWallet:
			return d.begin(c, state.StateProfileWallet, nil, d.text("profile.ask_wallet"))
		case keyboard.ProfileApply:
			return d.begin(c, state.StateApplicationMessage, nil, d.text("application.ask_message"))
		case keyboard.ProfileTop:
			ack(c)
			return send(c, d.text("leaderboard.choose"), d.Keyboard.Periods())
		case keyboard.ProfileToday:
			ack(c)
			total, err := d.Payouts.EarnedToday(RequestContext(c))
			if err != nil {
				return err
			}
			return c.Send(d.text("leaderboard.today", total.StringFixed(2), d.Payouts.Currency()))
		case keyboard.ProfileHistory:
			ack(c)
			return d.sendHistory(c)
		default:
			return NewUnknownHandler(d)(c)
		}
	}
}

func (d *Deps) sendHistory(c telebot.Context) error {
	records, err := d.Payouts.History(RequestContext(c), senderID(c))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return c.Send(d.text("profile.history_empty"))
	}
	if len(records) > historyLimit {
		records = records[:historyLimit]
	}

	var b strings.Builder
	b.WriteString(d.text("profile.history_title"))
	for _, r := range records {
		b.WriteString("\n")
		b.WriteString(d.text("profile.history_row",
			r.CreatedAt.UTC().Format("02.01.2006"),
			r.Credited.StringFixed(2),
			d.Payouts.Currency(),
			r.Multiplier.String(),
		))
	}
	return c.Send(b.String())
}

// NewLeaderboardHandler renders the top earners for the pressed period.
func NewLeaderboardHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		ack(c)

		period := domain.Period(callbackData(c))
		earners, err := d.Payouts.Leaderboard(RequestContext(c), period)
		if err != nil {
			return err
		}
		if len(earners) == 0 {
			return c.Send(d.text("leaderboard.empty"))
		}

		var b strings.Builder
		b.WriteString(d.text("leaderboard.title", d.text("leaderboard."+string(period))))
		for i, e := range earners {
			name := e.Name
			if strings.TrimSpace(name) == "" {
				name = fmt.Sprintf("ID:%d", e.UserID)
			}
			b.WriteString("\n")
			b.WriteString(d.text("leaderboard.row", i+1, name, e.Earned.StringFixed(2), d.Payouts.Currency()))
		}
		return c.Send(b.String())
	}
}

// NewProfileNameStep stores the name typed by the user.
func NewProfileNameStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		if err := d.Users.UpdateName(RequestContext(c), senderID(c), c.Text()); err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		return c.Send(d.text("profile.name_saved"))
	}
}

// NewProfileWalletStep stores the wallet address typed by the user.
func NewProfileWalletStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		if err := d.Users.UpdateContact(RequestContext(c), senderID(c), c.Text()); err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		return c.Send(d.text("profile.wallet_saved"))
	}
}
