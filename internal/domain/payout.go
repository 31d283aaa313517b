package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance is returned when a deduction would take the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrZeroAmount is returned for payouts that would not change anything,
	// including amounts that round to zero once the multiplier is applied.
	ErrZeroAmount = errors.New("payout amount must not be zero")
)

// PayoutRecord is an immutable ledger entry.
type PayoutRecord struct {
	ID     int64
	UserID int64
	// Amount is the signed value entered by the issuing admin.
	Amount decimal.Decimal
	// Multiplier is the rank multiplier in effect at insertion time.
	Multiplier decimal.Decimal
	// Credited is Amount * Multiplier and is the actual balance delta.
	Credited  decimal.Decimal
	IssuedBy  int64
	CreatedAt time.Time
}

// Earner is a leaderboard row.
type Earner struct {
	UserID int64
	Name   string
	Earned decimal.Decimal
}

// Period is a leaderboard window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Since returns the start of the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, 0, -30)
	default:
		return now.AddDate(0, 0, -1)
	}
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p == PeriodDay || p == PeriodWeek || p == PeriodMonth
}

// ApplyPayout computes the ledger entry for amount against u and the balance it results in.
// Deductions that would make the balance negative are rejected, so the balance always
// equals the sum of credited ledger amounts.
func ApplyPayout(u *User, amount decimal.Decimal, issuedBy int64, now time.Time) (*PayoutRecord, decimal.Decimal, error) {
	if u == nil {
		return nil, decimal.Zero, ErrUserNotFound
	}
	if amount.IsZero() {
		return nil, u.Balance, ErrZeroAmount
	}

	multiplier := u.Multiplier()
	credited := amount.Mul(multiplier).Round(2)
	if credited.IsZero() {
		return nil, u.Balance, ErrZeroAmount
	}
	balance := u.Balance.Add(credited)
	if balance.IsNegative() {
		return nil, u.Balance, ErrInsufficientBalance
	}

	record := &PayoutRecord{
		UserID:     u.ID,
		Amount:     amount,
		Multiplier: multiplier,
		Credited:   credited,
		IssuedBy:   issuedBy,
		CreatedAt:  now,
	}

	return record, balance, nil
}
