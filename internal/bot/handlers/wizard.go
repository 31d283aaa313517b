package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/domain"
	"github.com/Proton-105/payout-bot/internal/state"
)

var (
	errBadUserID   = errors.New("user id is not a number")
	errBadAmount   = errors.New("amount is not a positive number")
	errBadDuration = errors.New("ban duration is not valid")
)

// maxBanDays keeps a typed day count inside time.Duration.
const maxBanDays = 36500

const (
	directionAdd = "add"
	directionSub = "sub"
)

func parseUserID(text string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadUserID
	}
	return id, nil
}

// parseAmount accepts a positive decimal with at most two fractional digits,
// with either a dot or a comma.
func parseAmount(text string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(text), ",", "."))
	if err != nil || !value.IsPositive() || !value.Equal(value.Round(2)) {
		return decimal.Zero, errBadAmount
	}
	return value, nil
}

// parseBanDuration accepts a whole number of days or a Go duration such as 12h.
func parseBanDuration(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if days, err := strconv.Atoi(text); err == nil {
		if days <= 0 || days > maxBanDays {
			return 0, errBadDuration
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(text)
	if err != nil || d <= 0 || d > maxBanDays*24*time.Hour {
		return 0, fmt.Errorf("%w: %q", errBadDuration, text)
	}
	return d, nil
}

// wizardTarget returns the user id collected by the first step of the current wizard.
func (d *Deps) wizardTarget(c telebot.Context) (int64, *state.UserState, error) {
	st, err := d.FSM.GetState(RequestContext(c), senderID(c))
	if err != nil {
		return 0, nil, err
	}

	id, ok := st.Int64(state.KeyTargetUserID)
	if !ok {
		return 0, st, fmt.Errorf("wizard %s has no target user", st.CurrentState)
	}
	return id, st, nil
}

// readTarget parses the user id typed at the first wizard step and checks
// that the user exists. ok is false when the step already replied: malformed
// input is asked again, an unknown user ends the wizard.
func (d *Deps) readTarget(c telebot.Context) (id int64, ok bool, err error) {
	id, err = parseUserID(c.Text())
	if err != nil {
		return 0, false, c.Send(d.text("common.bad_user_id"))
	}

	if _, err := d.Users.Get(RequestContext(c), id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			d.done(c)
			return 0, false, c.Send(d.text("common.user_not_found"))
		}
		return 0, false, d.fail(c, err)
	}

	return id, true, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04 UTC")
}
