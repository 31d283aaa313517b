package repository

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/payout-bot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return db, mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_id", "name", "contact", "role", "rank", "balance", "banned_until", "joined_at", "updated_at"})
}

func TestUserRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	joined := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	banned := joined.Add(48 * time.Hour)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE user_id = $1")).
			WithArgs(int64(7)).
			WillReturnRows(userRows().AddRow(int64(7), "Ann", "TXwallet", "admin", "horse", "12.50", banned, joined, joined))

		user, err := repo.FindByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Ann", user.Name)
		assert.Equal(t, domain.RoleAdmin, user.Role)
		assert.Equal(t, domain.RankHorse, user.Rank)
		assert.True(t, decimal.RequireFromString("12.5").Equal(user.Balance))
		require.NotNil(t, user.BannedUntil)
		assert.True(t, banned.Equal(*user.BannedUntil))
	})

	t.Run("unknown rank falls back to ordinary", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE user_id = $1")).
			WithArgs(int64(8)).
			WillReturnRows(userRows().AddRow(int64(8), "", "", "user", "", "0", nil, joined, joined))

		user, err := repo.FindByID(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, domain.RankOrdinary, user.Rank)
		assert.Nil(t, user.BannedUntil)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE user_id = $1")).
			WithArgs(int64(9)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(ctx, 9)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestUserRepository_UpdatesReportMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, testLogger())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = $2")).
		WithArgs(int64(1), "Bob").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET rank = $2")).
		WithArgs(int64(1), "musician").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, repo.UpdateName(context.Background(), 1, "Bob"), domain.ErrUserNotFound)
	assert.NoError(t, repo.UpdateRank(context.Background(), 1, domain.RankMusician))
}

func TestUserRepository_SetBannedUntilClears(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, testLogger())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET banned_until = $2")).
		WithArgs(int64(3), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetBannedUntil(context.Background(), 3, nil))
}

func TestUserRepository_ListIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, testLogger())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(1)).AddRow(int64(2)))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func applicationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "message", "status", "resolved_by", "resolved_at", "created_at"})
}

func TestApplicationRepository_Resolve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("pending application is resolved", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewApplicationRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE applications")).
			WithArgs(int64(5), "approved", int64(100), now).
			WillReturnRows(applicationRows().AddRow(int64(5), int64(42), "hi", "approved", int64(100), now, now))

		app, err := repo.Resolve(ctx, 5, domain.ApplicationApproved, 100, now)
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationApproved, app.Status)
		require.NotNil(t, app.ResolvedBy)
		assert.Equal(t, int64(100), *app.ResolvedBy)
	})

	t.Run("second resolver loses", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewApplicationRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE applications")).
			WithArgs(int64(5), "rejected", int64(101), now).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).
			WithArgs(int64(5)).
			WillReturnRows(applicationRows().AddRow(int64(5), int64(42), "hi", "approved", int64(100), now, now))

		_, err := repo.Resolve(ctx, 5, domain.ApplicationRejected, 101, now)
		assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	})

	t.Run("unknown application", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewApplicationRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE applications")).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Resolve(ctx, 77, domain.ApplicationApproved, 100, now)
		assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
	})
}

func TestPayoutRepository_Issue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("credits multiplied amount", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPayoutRepository(db, testLogger())

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs(int64(42)).
			WillReturnRows(userRows().AddRow(int64(42), "Ann", "", "user", "hanger_on", "10.00", nil, now, now))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payouts")).
			WithArgs(int64(42), "100", "0.6", "60", int64(1), now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance = $2")).
			WithArgs(int64(42), "70", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		record, balance, err := repo.Issue(ctx, 42, decimal.NewFromInt(100), 1, now)
		require.NoError(t, err)
		assert.Equal(t, int64(11), record.ID)
		assert.True(t, decimal.NewFromInt(60).Equal(record.Credited))
		assert.True(t, decimal.NewFromInt(70).Equal(balance))
	})

	t.Run("overdraft rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPayoutRepository(db, testLogger())

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs(int64(42)).
			WillReturnRows(userRows().AddRow(int64(42), "Ann", "", "user", "ordinary", "5.00", nil, now, now))
		mock.ExpectRollback()

		_, _, err := repo.Issue(ctx, 42, decimal.NewFromInt(-10), 1, now)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})

	t.Run("unknown user rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPayoutRepository(db, testLogger())

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := repo.Issue(ctx, 404, decimal.NewFromInt(10), 1, now)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestPayoutRepository_TopEarnersAndTotal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPayoutRepository(db, testLogger())
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SUM(p.credited)")).
		WithArgs(since, 10).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "earned"}).
			AddRow(int64(1), "Ann", "150.00").
			AddRow(int64(2), "Bob", "80.50"))
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(credited), 0)")).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("230.50"))

	earners, err := repo.TopEarners(context.Background(), since, 10)
	require.NoError(t, err)
	require.Len(t, earners, 2)
	assert.Equal(t, "Ann", earners[0].Name)
	assert.True(t, decimal.RequireFromString("80.5").Equal(earners[1].Earned))

	total, err := repo.TotalSince(context.Background(), since)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("230.5").Equal(total))
}

func TestNewsRepository_MarkSentOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNewsRepository(db, testLogger())
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE news SET sent = TRUE")).
		WithArgs(int64(3), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE news SET sent = TRUE")).
		WithArgs(int64(3), now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.MarkSent(context.Background(), 3, now)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkSent(context.Background(), 3, now)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestRepositories_NullTextColumnsReadAsEmpty(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	t.Run("user", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE user_id = $1")).
			WithArgs(int64(3)).
			WillReturnRows(userRows().AddRow(int64(3), nil, nil, nil, "horse", "1.00", nil, now, now))

		user, err := repo.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, user.Name)
		assert.Empty(t, user.Contact)
		assert.Equal(t, domain.RoleUser, user.Role)
		assert.Equal(t, domain.RankHorse, user.Rank)
	})

	t.Run("application", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewApplicationRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).
			WithArgs(int64(4)).
			WillReturnRows(applicationRows().AddRow(int64(4), int64(3), nil, "pending", nil, nil, now))

		app, err := repo.FindByID(ctx, 4)
		require.NoError(t, err)
		assert.Empty(t, app.Message)
		assert.Equal(t, domain.ApplicationPending, app.Status)
	})

	t.Run("news", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewNewsRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM news")).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "content", "author_id", "created_at"}).
				AddRow(int64(1), nil, int64(100), now))

		items, err := repo.ListUnsent(ctx, 5)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Empty(t, items[0].Content)
	})

	t.Run("earner", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPayoutRepository(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("SUM(p.credited)")).
			WithArgs(now, 3).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "earned"}).AddRow(int64(3), nil, "10.00"))

		earners, err := repo.TopEarners(ctx, now, 3)
		require.NoError(t, err)
		require.Len(t, earners, 1)
		assert.Empty(t, earners[0].Name)
	})
}
