package state

import (
	"strconv"
	"time"
)

// State represents a finite-state machine state.
type State string

const (
	// StateIdle indicates that no wizard is in progress.
	StateIdle State = "idle"

	StateProfileName        State = "profile_name"
	StateProfileWallet      State = "profile_wallet"
	StateApplicationMessage State = "application_message"

	StateAssignAdminUser State = "assign_admin_user"
	StateRevokeAdminUser State = "revoke_admin_user"
	StateRankUser        State = "rank_user"
	StateRankValue       State = "rank_value"
	StatePayoutUser      State = "payout_user"
	StatePayoutAmount    State = "payout_amount"
	StateBanUser         State = "ban_user"
	StateBanDuration     State = "ban_duration"
	StateUnbanUser       State = "unban_user"
	StatePostUsersText   State = "post_users_text"
	StatePostChannelText State = "post_channel_text"

	// StateError indicates that the bot is in an error state and requires recovery.
	StateError State = "error"
)

// Context keys shared by the multi-step wizards.
const (
	KeyTargetUserID = "target_user_id"
	KeyDirection    = "direction"
)

// UserState captures the current FSM state for a Telegram user.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Int64 reads an integer collected by an earlier wizard step.
// Values round-tripped through JSON come back as float64 or string.
func (s *UserState) Int64(key string) (int64, bool) {
	if s == nil || s.Context == nil {
		return 0, false
	}

	switch v := s.Context[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

// String reads a string collected by an earlier wizard step.
func (s *UserState) String(key string) (string, bool) {
	if s == nil || s.Context == nil {
		return "", false
	}

	v, ok := s.Context[key].(string)
	return v, ok
}
