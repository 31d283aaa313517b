package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/payout-bot/internal/domain"
)

// PayoutRepository persists the append-only payout ledger.
type PayoutRepository interface {
	// Issue appends a ledger row and moves the user's balance in one transaction.
	Issue(ctx context.Context, userID int64, amount decimal.Decimal, issuedBy int64, now time.Time) (*domain.PayoutRecord, decimal.Decimal, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.PayoutRecord, error)
	TopEarners(ctx context.Context, since time.Time, limit int) ([]domain.Earner, error)
	TotalSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}

type payoutRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPayoutRepository creates a SQL-backed payout ledger.
func NewPayoutRepository(db *sql.DB, log *slog.Logger) PayoutRepository {
	if log == nil {
		log = slog.Default()
	}

	return &payoutRepository{db: db, log: log}
}

func (r *payoutRepository) Issue(ctx context.Context, userID int64, amount decimal.Decimal, issuedBy int64, now time.Time) (record *domain.PayoutRecord, balance decimal.Decimal, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("begin payout transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.log.Error("payout rollback failed", slog.Int64("user_id", userID), slog.Any("error", rbErr))
		}
	}()

	user, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, decimal.Zero, domain.ErrUserNotFound
		}
		return nil, decimal.Zero, fmt.Errorf("lock user: %w", err)
	}

	record, balance, err = domain.ApplyPayout(user, amount, issuedBy, now)
	if err != nil {
		return nil, balance, err
	}

	const insert = `
		INSERT INTO payouts (user_id, amount, multiplier, credited, issued_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if err = tx.QueryRowContext(ctx, insert,
		record.UserID,
		record.Amount,
		record.Multiplier,
		record.Credited,
		record.IssuedBy,
		record.CreatedAt,
	).Scan(&record.ID); err != nil {
		return nil, decimal.Zero, fmt.Errorf("insert payout: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE users SET balance = $2, updated_at = $3 WHERE user_id = $1`, userID, balance, now); err != nil {
		return nil, decimal.Zero, fmt.Errorf("update balance: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commit payout: %w", err)
	}

	return record, balance, nil
}

func (r *payoutRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.PayoutRecord, error) {
	const query = `
		SELECT id, user_id, amount, multiplier, credited, issued_by, created_at
		FROM payouts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	var records []domain.PayoutRecord
	for rows.Next() {
		var rec domain.PayoutRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Amount, &rec.Multiplier, &rec.Credited, &rec.IssuedBy, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}

	return records, nil
}

// TopEarners ranks users by credited payouts created at or after since.
func (r *payoutRepository) TopEarners(ctx context.Context, since time.Time, limit int) ([]domain.Earner, error) {
	const query = `
		SELECT u.user_id, u.name, SUM(p.credited) AS earned
		FROM payouts p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.created_at >= $1
		GROUP BY u.user_id, u.name
		HAVING SUM(p.credited) > 0
		ORDER BY earned DESC, u.user_id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		r.log.Error("failed to query top earners", slog.Any("error", err))
		return nil, fmt.Errorf("top earners: %w", err)
	}
	defer rows.Close()

	var earners []domain.Earner
	for rows.Next() {
		var (
			e    domain.Earner
			name sql.NullString
		)
		if err := rows.Scan(&e.UserID, &name, &e.Earned); err != nil {
			return nil, fmt.Errorf("scan earner: %w", err)
		}
		e.Name = name.String
		earners = append(earners, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate earners: %w", err)
	}

	return earners, nil
}

func (r *payoutRepository) TotalSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(credited), 0) FROM payouts WHERE created_at >= $1`, since).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("total payouts: %w", err)
	}
	return total, nil
}
