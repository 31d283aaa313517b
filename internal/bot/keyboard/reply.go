package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/domain"
	"github.com/Proton-105/payout-bot/internal/i18n"
)

// MainMenu builds the reply keyboard for u. Users without a profile are
// offered the application first; staff also get the admin panel.
func MainMenu(t i18n.Translator, u *domain.User) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	lookup := func(key string) string {
		if t == nil {
			return key
		}
		return t.T(key)
	}

	first := markup.Text(lookup("menu.profile"))
	if u.IsFresh() {
		first = markup.Text(lookup("menu.apply"))
	}

	rows := []telebot.Row{markup.Row(first)}
	if u != nil && u.Role.AtLeastAdmin() {
		rows = append(rows, markup.Row(markup.Text(lookup("menu.admin"))))
	}

	markup.Reply(rows...)
	return markup
}
