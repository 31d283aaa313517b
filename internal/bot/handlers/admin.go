package handlers

import (
	"context"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
	"github.com/Proton-105/payout-bot/internal/domain"
)

const (
	usersPageSize    = 10
	pendingListLimit = 20
)

// NewAdminPanelHandler shows the admin menu.
func NewAdminPanelHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		ack(c)
		return send(c, d.text("admin.panel"), d.Keyboard.AdminPanel())
	}
}

// NewAdminCallbackHandler dispatches the admin panel buttons.
func NewAdminCallbackHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		switch callbackData(c) {
		case keyboard.AdminPanel:
			return NewAdminPanelHandler(d)(c)
		case keyboard.AdminApplications:
			ack(c)
			return d.sendPendingApplications(c)
		case keyboard.AdminUsers:
			ack(c)
			return d.sendUsersPage(c, 1)
		case keyboard.AdminManage:
			ack(c)
			return send(c, d.text("admin.manage_title"), d.Keyboard.Manage(CurrentUser(c)))
		case keyboard.AdminPosts:
			ack(c)
			return send(c, d.text("admin.posts_title"), d.Keyboard.Posts())
		case keyboard.AdminStats:
			ack(c)
			return d.sendStats(c)
		default:
			return NewUnknownHandler(d)(c)
		}
	}
}

// NewUsersPageHandler flips the paginated user list.
func NewUsersPageHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		ack(c)
		page, err := strconv.Atoi(callbackData(c))
		if err != nil || page < 1 {
			page = 1
		}
		return d.sendUsersPage(c, page)
	}
}

func (d *Deps) sendPendingApplications(c telebot.Context) error {
	ctx := RequestContext(c)

	apps, err := d.Applications.ListPending(ctx, pendingListLimit)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		return c.Send(d.text("admin.no_applications"))
	}

	for _, app := range apps {
		card := d.text("admin.application_card", app.ID, d.authorName(ctx, app.UserID), app.UserID, app.Message)
		if err := send(c, card, d.Keyboard.ApplicationActions(app.ID)); err != nil {
			return err
		}
	}
	return nil
}

// authorName never fails; a missing profile falls back to the numeric id.
func (d *Deps) authorName(ctx context.Context, userID int64) string {
	u, err := d.Users.Get(ctx, userID)
	if err != nil {
		return (&domain.User{ID: userID}).DisplayName()
	}
	return u.DisplayName()
}

func (d *Deps) sendUsersPage(c telebot.Context, page int) error {
	users, total, err := d.Users.List(RequestContext(c), page, usersPageSize)
	if err != nil {
		return err
	}
	if total == 0 {
		return c.Send(d.text("admin.users_empty"))
	}

	totalPages := keyboard.TotalPages(total, usersPageSize)
	now := d.now()

	var b strings.Builder
	b.WriteString(d.text("admin.users_title", total))
	for i := range users {
		u := &users[i]
		b.WriteString("\n")
		b.WriteString(d.text("admin.user_row",
			u.DisplayName(),
			u.ID,
			d.text("roles."+string(u.Role)),
			u.Rank.Title(),
			u.Balance.StringFixed(2),
			d.Payouts.Currency(),
		))
		if u.IsBanned(now) {
			b.WriteString(d.text("admin.banned_mark"))
		}
	}

	return send(c, b.String(), d.Keyboard.UsersPage(page, totalPages))
}

func (d *Deps) sendStats(c telebot.Context) error {
	ctx := RequestContext(c)

	users, err := d.Users.Count(ctx)
	if err != nil {
		return err
	}
	pending, err := d.Applications.CountPending(ctx)
	if err != nil {
		return err
	}
	today, err := d.Payouts.EarnedToday(ctx)
	if err != nil {
		return err
	}

	return c.Send(d.text("admin.stats", users, pending, today.StringFixed(2), d.Payouts.Currency()))
}

// NewApproveHandler approves the application referenced by the button.
func NewApproveHandler(d *Deps) CallbackHandler {
	return d.decide(func(ctx context.Context, actor *domain.User, id int64) (*domain.Application, error) {
		return d.Applications.Approve(ctx, actor, id)
	}, "admin.approved")
}

// NewRejectHandler rejects the application referenced by the button.
func NewRejectHandler(d *Deps) CallbackHandler {
	return d.decide(func(ctx context.Context, actor *domain.User, id int64) (*domain.Application, error) {
		return d.Applications.Reject(ctx, actor, id)
	}, "admin.rejected")
}

func (d *Deps) decide(resolve func(context.Context, *domain.User, int64) (*domain.Application, error), doneKey string) CallbackHandler {
	return func(c telebot.Context) error {
		admin, err := actor(c)
		if err != nil {
			return err
		}

		id, err := keyboard.DataInt64(callbackData(c))
		if err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: d.text("common.unknown")})
		}

		app, err := resolve(RequestContext(c), admin, id)
		if err != nil {
			return err
		}

		ack(c)
		done := d.text(doneKey, app.ID)
		if msg := c.Message(); msg != nil {
			if editErr := c.Edit(msg.Text + "\n\n" + done); editErr == nil {
				return nil
			}
		}
		return c.Send(done)
	}
}
