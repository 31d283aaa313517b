package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRank(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    Rank
		wantErr bool
	}{
		{name: "code", input: "horse", want: RankHorse},
		{name: "title", input: "Лошадь", want: RankHorse},
		{name: "title with spaces", input: "  прихлебала ", want: RankHangerOn},
		{name: "musician", input: "МУЗЫКАНТ", want: RankMusician},
		{name: "ordinary title", input: "новичок", want: RankOrdinary},
		{name: "unknown", input: "дракон", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRank(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnknownRank)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("ADMIN")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, err = ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRolePredicates(t *testing.T) {
	assert.False(t, RoleUser.AtLeastAdmin())
	assert.True(t, RoleAdmin.AtLeastAdmin())
	assert.True(t, RoleSuperadmin.AtLeastAdmin())
	assert.False(t, RoleAdmin.IsSuperadmin())
	assert.True(t, RoleSuperadmin.IsSuperadmin())
}

func TestMultiplier(t *testing.T) {
	testCases := []struct {
		name string
		role Role
		rank Rank
		want string
	}{
		{name: "ordinary user", role: RoleUser, rank: RankOrdinary, want: "1"},
		{name: "hanger on", role: RoleUser, rank: RankHangerOn, want: "0.6"},
		{name: "horse", role: RoleUser, rank: RankHorse, want: "0.7"},
		{name: "musician", role: RoleUser, rank: RankMusician, want: "0.8"},
		{name: "ranked admin", role: RoleAdmin, rank: RankHorse, want: "1"},
		{name: "unknown rank", role: RoleUser, rank: Rank("legacy"), want: "1"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Multiplier(tc.role, tc.rank)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestUser_IsBanned(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Second)

	assert.False(t, (&User{}).IsBanned(now))
	assert.True(t, (&User{BannedUntil: &future}).IsBanned(now))
	assert.False(t, (&User{BannedUntil: &past}).IsBanned(now))
	assert.False(t, (&User{BannedUntil: &now}).IsBanned(now))
}

func TestUser_IsFresh(t *testing.T) {
	assert.True(t, (&User{Role: RoleUser}).IsFresh())
	assert.False(t, (&User{Role: RoleUser, Name: "Bob"}).IsFresh())
	assert.False(t, (&User{Role: RoleUser, Contact: "TX123"}).IsFresh())
	assert.False(t, (&User{Role: RoleAdmin}).IsFresh())
}

func TestApplyPayout(t *testing.T) {
	now := time.Now().UTC()

	t.Run("rank multiplier applied", func(t *testing.T) {
		u := &User{ID: 100, Role: RoleUser, Rank: RankHorse, Balance: decimal.Zero}
		record, balance, err := ApplyPayout(u, decimal.NewFromInt(100), 1, now)
		require.NoError(t, err)

		assert.True(t, record.Amount.Equal(decimal.NewFromInt(100)))
		assert.True(t, record.Credited.Equal(decimal.NewFromInt(70)))
		assert.Equal(t, int64(1), record.IssuedBy)
		assert.True(t, balance.Equal(decimal.NewFromInt(70)))
	})

	t.Run("deduction within balance", func(t *testing.T) {
		u := &User{ID: 5, Role: RoleUser, Rank: RankOrdinary, Balance: decimal.NewFromInt(50)}
		_, balance, err := ApplyPayout(u, decimal.NewFromInt(-20), 1, now)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(30)))
	})

	t.Run("deduction below zero rejected", func(t *testing.T) {
		u := &User{ID: 5, Role: RoleUser, Rank: RankOrdinary, Balance: decimal.NewFromInt(10)}
		record, balance, err := ApplyPayout(u, decimal.NewFromInt(-20), 1, now)
		assert.True(t, errors.Is(err, ErrInsufficientBalance))
		assert.Nil(t, record)
		assert.True(t, balance.Equal(decimal.NewFromInt(10)))
	})

	zeroCases := []struct {
		name   string
		amount string
		rank   Rank
	}{
		{name: "zero amount", amount: "0", rank: RankOrdinary},
		{name: "credit rounds to zero", amount: "0.004", rank: RankHangerOn},
		{name: "negative credit rounds to zero", amount: "-0.001", rank: RankMusician},
	}
	for _, tc := range zeroCases {
		t.Run(tc.name, func(t *testing.T) {
			u := &User{ID: 1, Role: RoleUser, Rank: tc.rank, Balance: decimal.NewFromInt(5)}
			record, balance, err := ApplyPayout(u, decimal.RequireFromString(tc.amount), 1, now)
			assert.ErrorIs(t, err, ErrZeroAmount)
			assert.Nil(t, record)
			assert.True(t, balance.Equal(decimal.NewFromInt(5)))
		})
	}

	t.Run("missing user", func(t *testing.T) {
		_, _, err := ApplyPayout(nil, decimal.NewFromInt(1), 1, now)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestPeriod_Since(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.AddDate(0, 0, -1), PeriodDay.Since(now))
	assert.Equal(t, now.AddDate(0, 0, -7), PeriodWeek.Since(now))
	assert.Equal(t, now.AddDate(0, 0, -30), PeriodMonth.Since(now))
	assert.False(t, Period("year").Valid())
}
