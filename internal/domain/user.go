package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUserNotFound indicates that no user record exists for the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnknownRole is returned when a role string cannot be parsed.
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnknownRank is returned when a rank name cannot be parsed.
	ErrUnknownRank = errors.New("unknown rank")
	// ErrForbidden is returned when the actor's role does not allow the operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrProtectedUser is returned when an operation targets the superadmin.
	ErrProtectedUser = errors.New("superadmin cannot be modified")
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// ParseRole converts a stored role value into a Role.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleUser, "":
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSuperadmin:
		return RoleSuperadmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
}

// AtLeastAdmin reports whether the role grants access to the admin panel.
func (r Role) AtLeastAdmin() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// IsSuperadmin reports whether the role may promote other users.
func (r Role) IsSuperadmin() bool {
	return r == RoleSuperadmin
}

// User is a chat participant known to the bot. Users are never deleted.
type User struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Contact     string          `json:"contact"`
	Role        Role            `json:"role"`
	Rank        Rank            `json:"rank"`
	Balance     decimal.Decimal `json:"balance"`
	BannedUntil *time.Time      `json:"banned_until,omitempty"`
	JoinedAt    time.Time       `json:"joined_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewUser returns a fresh user record with default role and rank.
func NewUser(id int64, now time.Time) *User {
	return &User{
		ID:        id,
		Role:      RoleUser,
		Rank:      RankOrdinary,
		Balance:   decimal.Zero,
		JoinedAt:  now,
		UpdatedAt: now,
	}
}

// IsBanned reports whether the ban window is still open at now.
// An elapsed ban restores access without any write.
func (u *User) IsBanned(now time.Time) bool {
	return u != nil && u.BannedUntil != nil && u.BannedUntil.After(now)
}

// IsFresh reports whether a regular user has not filled in any profile data yet.
func (u *User) IsFresh() bool {
	if u == nil || u.Role.AtLeastAdmin() {
		return false
	}
	return strings.TrimSpace(u.Name) == "" && strings.TrimSpace(u.Contact) == ""
}

// DisplayName returns the name or a numeric fallback.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return fmt.Sprintf("ID:%d", u.ID)
}

// Multiplier returns the payout multiplier applied to this user's credits.
func (u *User) Multiplier() decimal.Decimal {
	if u == nil {
		return decimal.NewFromInt(1)
	}
	return Multiplier(u.Role, u.Rank)
}
