package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rank is a paid tier. It is independent of Role.
type Rank string

const (
	RankOrdinary Rank = "ordinary"
	RankHangerOn Rank = "hanger_on"
	RankHorse    Rank = "horse"
	RankMusician Rank = "musician"
)

type rankInfo struct {
	title      string
	multiplier decimal.Decimal
}

var ranks = map[Rank]rankInfo{
	RankOrdinary: {title: "новичок", multiplier: decimal.NewFromInt(1)},
	RankHangerOn: {title: "прихлебала", multiplier: decimal.RequireFromString("0.6")},
	RankHorse:    {title: "лошадь", multiplier: decimal.RequireFromString("0.7")},
	RankMusician: {title: "музыкант", multiplier: decimal.RequireFromString("0.8")},
}

// PaidRanks lists the tiers an admin may assign, in display order.
var PaidRanks = []Rank{RankHangerOn, RankHorse, RankMusician}

// ParseRank accepts a rank code or its community title, case-insensitively.
func ParseRank(value string) (Rank, error) {
	norm := strings.ToLower(strings.TrimSpace(value))
	if norm == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownRank)
	}

	for rank, info := range ranks {
		if norm == string(rank) || norm == info.title {
			return rank, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownRank, value)
}

// Title returns the human readable name of the rank.
func (r Rank) Title() string {
	if info, ok := ranks[r]; ok {
		return info.title
	}
	return string(r)
}

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool {
	_, ok := ranks[r]
	return ok
}

// Multiplier returns the payout multiplier for a role and rank pair.
// Staff and unranked users always receive 1.0.
func Multiplier(role Role, rank Rank) decimal.Decimal {
	if role.AtLeastAdmin() {
		return decimal.NewFromInt(1)
	}
	info, ok := ranks[rank]
	if !ok {
		return decimal.NewFromInt(1)
	}
	return info.multiplier
}
