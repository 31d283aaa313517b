package keyboard

import (
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/domain"
	"github.com/Proton-105/payout-bot/internal/i18n"
)

// Builder renders the bot's inline keyboards in one language.
type Builder struct {
	t   i18n.Translator
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(t i18n.Translator, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{t: t, log: log}
}

// MainMenu builds the reply keyboard for u.
func (b *Builder) MainMenu(u *domain.User) *telebot.ReplyMarkup {
	return MainMenu(b.t, u)
}

// Profile builds the buttons under the profile card.
func (b *Builder) Profile() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.button("profile.edit_name", ActionProfile, ProfileEditName), b.button("profile.edit_wallet", ActionProfile, ProfileEditWallet)).
		AddRow(b.button("profile.leaderboard", ActionProfile, ProfileTop), b.button("profile.today", ActionProfile, ProfileToday)).
		AddRow(b.button("profile.history", ActionProfile, ProfileHistory)).
		AddRow(b.button("profile.apply", ActionProfile, ProfileApply)))
}

// Periods builds the leaderboard window picker.
func (b *Builder) Periods() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(
		b.button("leaderboard.day", ActionTop, string(domain.PeriodDay)),
		b.button("leaderboard.week", ActionTop, string(domain.PeriodWeek)),
		b.button("leaderboard.month", ActionTop, string(domain.PeriodMonth)),
	))
}

// AdminPanel builds the admin entry menu.
func (b *Builder) AdminPanel() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.button("admin.applications", ActionAdmin, AdminApplications), b.button("admin.users", ActionAdmin, AdminUsers)).
		AddRow(b.button("admin.manage", ActionAdmin, AdminManage), b.button("admin.posts", ActionAdmin, AdminPosts)).
		AddRow(b.button("admin.stats_button", ActionAdmin, AdminStats)))
}

// Manage builds the user management menu. Role changes are only offered to the superadmin.
func (b *Builder) Manage(actor *domain.User) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	if actor != nil && actor.Role.IsSuperadmin() {
		kb.AddRow(b.button("admin.assign_admin", ActionManage, ManageAssign), b.button("admin.revoke_admin", ActionManage, ManageRevoke))
	}
	kb.AddRow(b.button("admin.change_rank", ActionManage, ManageRank)).
		AddRow(b.button("admin.payout_add", ActionManage, ManagePayoutAdd), b.button("admin.payout_sub", ActionManage, ManagePayoutSub)).
		AddRow(b.button("admin.ban", ActionManage, ManageBan), b.button("admin.unban", ActionManage, ManageUnban)).
		AddRow(b.button("common.back", ActionAdmin, AdminPanel))
	return b.build(kb)
}

// Posts builds the broadcast target picker.
func (b *Builder) Posts() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.button("admin.post_users", ActionPost, PostUsers)).
		AddRow(b.button("admin.post_channel", ActionPost, PostChannel)).
		AddRow(b.button("admin.publish_pending", ActionPost, PostPublish)))
}

// Ranks lists every rank as a button, with the localized rank title.
func (b *Builder) Ranks() *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	row := make([]InlineButton, 0, 2)
	for _, rank := range append([]domain.Rank{domain.RankOrdinary}, domain.PaidRanks...) {
		row = append(row, InlineButton{Text: rank.Title(), Unique: ActionRank, Data: string(rank)})
		if len(row) == 2 {
			kb.AddRow(row...)
			row = row[:0]
		}
	}
	kb.AddRow(row...)
	kb.AddRow(b.button("common.cancel", ActionCancel, ""))
	return b.build(kb)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ApplicationActions builds the approve/reject pair for one application.
func (b *Builder) ApplicationActions(id int64) *telebot.ReplyMarkup {
	data := formatID(id)
	return b.build(NewInlineKeyboard().AddRow(
		b.button("admin.approve", ActionApprove, data),
		b.button("admin.reject", ActionReject, data),
	))
}

// UsersPage builds the pager under the user list.
func (b *Builder) UsersPage(page, totalPages int) *telebot.ReplyMarkup {
	if totalPages <= 1 {
		return nil
	}
	return b.build(NewInlineKeyboard().AddRow(PaginationButtons(b.t, ActionUsers, page, totalPages)...))
}

// CancelButton builds a single cancel button shown under wizard prompts.
func (b *Builder) CancelButton() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(b.button("common.cancel", ActionCancel, "")))
}

func (b *Builder) button(key, unique, data string) InlineButton {
	text := key
	if b.t != nil {
		text = b.t.T(key)
	}
	return InlineButton{Text: text, Unique: unique, Data: data}
}

func (b *Builder) build(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	markup, err := kb.Build()
	if err != nil {
		b.log.Error("failed to build inline keyboard", slog.Any("error", err))
		return nil
	}
	return markup
}
