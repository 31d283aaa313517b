package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
	"github.com/Proton-105/payout-bot/internal/domain"
	"github.com/Proton-105/payout-bot/internal/state"
)

// NewManageCallbackHandler starts the user management wizards.
func NewManageCallbackHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		ask := d.text("common.ask_user_id")

		switch callbackData(c) {
		case keyboard.ManageAssign:
			return d.begin(c, state.StateAssignAdminUser, nil, ask)
		case keyboard.ManageRevoke:
			return d.begin(c, state.StateRevokeAdminUser, nil, ask)
		case keyboard.ManageRank:
			return d.begin(c, state.StateRankUser, nil, ask)
		case keyboard.ManagePayoutAdd:
			return d.begin(c, state.StatePayoutUser, map[string]interface{}{state.KeyDirection: directionAdd}, ask)
		case keyboard.ManagePayoutSub:
			return d.begin(c, state.StatePayoutUser, map[string]interface{}{state.KeyDirection: directionSub}, ask)
		case keyboard.ManageBan:
			return d.begin(c, state.StateBanUser, nil, ask)
		case keyboard.ManageUnban:
			return d.begin(c, state.StateUnbanUser, nil, ask)
		default:
			return NewUnknownHandler(d)(c)
		}
	}
}

// NewAssignAdminStep promotes the typed user id.
func NewAssignAdminStep(d *Deps) Handler {
	return d.roleStep(func(ctx context.Context, admin *domain.User, id int64) (*domain.User, error) {
		return d.Users.PromoteToAdmin(ctx, admin, id)
	}, "admin.admin_assigned", "notify.promoted")
}

// NewRevokeAdminStep demotes the typed user id.
func NewRevokeAdminStep(d *Deps) Handler {
	return d.roleStep(func(ctx context.Context, admin *domain.User, id int64) (*domain.User, error) {
		return d.Users.DemoteToUser(ctx, admin, id)
	}, "admin.admin_revoked", "notify.demoted")
}

func (d *Deps) roleStep(change func(context.Context, *domain.User, int64) (*domain.User, error), doneKey, noticeKey string) Handler {
	return func(c telebot.Context) error {
		admin, err := actor(c)
		if err != nil {
			return err
		}

		id, err := parseUserID(c.Text())
		if err != nil {
			return c.Send(d.text("common.bad_user_id"))
		}

		ctx := RequestContext(c)
		target, err := change(ctx, admin, id)
		if err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		d.notify(ctx, target.ID, noticeKey)
		return c.Send(d.text(doneKey, target.DisplayName()))
	}
}

// NewUnbanStep lifts the ban of the typed user id.
func NewUnbanStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		admin, err := actor(c)
		if err != nil {
			return err
		}

		id, err := parseUserID(c.Text())
		if err != nil {
			return c.Send(d.text("common.bad_user_id"))
		}

		ctx := RequestContext(c)
		if err := d.Users.Unban(ctx, admin, id); err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		d.notify(ctx, id, "notify.unbanned")
		return c.Send(d.text("admin.unbanned", d.authorName(ctx, id)))
	}
}

// NewTargetStep collects the target user of a two-step wizard and moves to next.
func NewTargetStep(d *Deps, next state.State, promptKey string) Handler {
	return func(c telebot.Context) error {
		id, ok, err := d.readTarget(c)
		if !ok {
			return err
		}

		if err := d.FSM.TransitionTo(RequestContext(c), senderID(c), next, map[string]interface{}{state.KeyTargetUserID: id}); err != nil {
			return err
		}

		markup := d.Keyboard.CancelButton()
		if next == state.StateRankValue {
			markup = d.Keyboard.Ranks()
		}
		return send(c, d.text(promptKey), markup)
	}
}

// NewRankValueStep applies a rank typed as text.
func NewRankValueStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		return d.applyRank(c, c.Text())
	}
}

// NewRankCallbackHandler applies a rank picked from the keyboard.
func NewRankCallbackHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		st, err := d.FSM.GetState(RequestContext(c), senderID(c))
		if err != nil || st.CurrentState != state.StateRankValue {
			return NewUnknownHandler(d)(c)
		}

		ack(c)
		return d.applyRank(c, callbackData(c))
	}
}

func (d *Deps) applyRank(c telebot.Context, value string) error {
	admin, err := actor(c)
	if err != nil {
		return err
	}

	rank, err := domain.ParseRank(value)
	if err != nil {
		return d.fail(c, err)
	}

	targetID, _, err := d.wizardTarget(c)
	if err != nil {
		return d.fail(c, err)
	}

	ctx := RequestContext(c)
	target, err := d.Users.SetRank(ctx, admin, targetID, rank)
	if err != nil {
		return d.fail(c, err)
	}
	d.done(c)

	d.notify(ctx, target.ID, "notify.rank", rank.Title())
	return c.Send(d.text("admin.rank_set", target.DisplayName(), rank.Title()))
}

// NewPayoutAmountStep issues a credit or deduction for the collected target.
func NewPayoutAmountStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		admin, err := actor(c)
		if err != nil {
			return err
		}

		amount, err := parseAmount(c.Text())
		if err != nil {
			return c.Send(d.text("admin.bad_amount"))
		}

		targetID, st, err := d.wizardTarget(c)
		if err != nil {
			return d.fail(c, err)
		}
		if direction, _ := st.String(state.KeyDirection); direction == directionSub {
			amount = amount.Neg()
		}

		ctx := RequestContext(c)
		record, balance, err := d.Payouts.Issue(ctx, admin, targetID, amount)
		if err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		currency := d.Payouts.Currency()
		return c.Send(d.text("admin.payout_done",
			d.authorName(ctx, targetID),
			record.Credited.StringFixed(2),
			currency,
			record.Multiplier.String(),
			balance.StringFixed(2),
			currency,
		))
	}
}

// NewBanDurationStep bans the collected target for the typed duration.
func NewBanDurationStep(d *Deps) Handler {
	return func(c telebot.Context) error {
		admin, err := actor(c)
		if err != nil {
			return err
		}

		duration, err := parseBanDuration(c.Text())
		if err != nil {
			return c.Send(d.text("admin.bad_duration"))
		}

		targetID, _, err := d.wizardTarget(c)
		if err != nil {
			return d.fail(c, err)
		}

		ctx := RequestContext(c)
		until, err := d.Users.Ban(ctx, admin, targetID, duration)
		if err != nil {
			return d.fail(c, err)
		}
		d.done(c)

		d.notify(ctx, targetID, "notify.banned", formatTime(until))
		return c.Send(d.text("admin.banned", d.authorName(ctx, targetID), formatTime(until)))
	}
}
