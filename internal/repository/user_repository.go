// Package repository implements PostgreSQL persistence for users, applications, payouts and news.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/payout-bot/internal/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateContact(ctx context.Context, id int64, contact string) error
	UpdateRole(ctx context.Context, id int64, role domain.Role) error
	UpdateRank(ctx context.Context, id int64, rank domain.Rank) error
	SetBannedUntil(ctx context.Context, id int64, until *time.Time) error
	EnsureRole(ctx context.Context, id int64, role domain.Role) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int, error)
}

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `user_id, name, contact, role, rank, balance, banned_until, joined_at, updated_at`

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:  db,
		log: log,
	}
}

// FindByID retrieves a user by Telegram identifier.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}

		r.log.Error("failed to fetch user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// Create inserts the user unless a row with the same identifier already exists.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (user_id, name, contact, role, rank, balance, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Contact,
		string(user.Role),
		string(user.Rank),
		user.Balance,
		user.JoinedAt,
	); err != nil {
		r.log.Error("failed to create user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *userRepository) UpdateName(ctx context.Context, id int64, name string) error {
	return r.update(ctx, "update_name", `UPDATE users SET name = $2, updated_at = NOW() WHERE user_id = $1`, id, name)
}

func (r *userRepository) UpdateContact(ctx context.Context, id int64, contact string) error {
	return r.update(ctx, "update_contact", `UPDATE users SET contact = $2, updated_at = NOW() WHERE user_id = $1`, id, contact)
}

func (r *userRepository) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	return r.update(ctx, "update_role", `UPDATE users SET role = $2, updated_at = NOW() WHERE user_id = $1`, id, string(role))
}

func (r *userRepository) UpdateRank(ctx context.Context, id int64, rank domain.Rank) error {
	return r.update(ctx, "update_rank", `UPDATE users SET rank = $2, updated_at = NOW() WHERE user_id = $1`, id, string(rank))
}

// SetBannedUntil sets or, with a nil until, clears the ban window.
func (r *userRepository) SetBannedUntil(ctx context.Context, id int64, until *time.Time) error {
	var value sql.NullTime
	if until != nil {
		value = sql.NullTime{Time: until.UTC(), Valid: true}
	}
	return r.update(ctx, "set_banned_until", `UPDATE users SET banned_until = $2, updated_at = NOW() WHERE user_id = $1`, id, value)
}

// EnsureRole creates the user if needed and raises a plain user to role.
// An existing superadmin is only ever overwritten with superadmin.
func (r *userRepository) EnsureRole(ctx context.Context, id int64, role domain.Role) error {
	const query = `
		INSERT INTO users (user_id, role, joined_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET role = EXCLUDED.role, updated_at = NOW()
		WHERE users.role = 'user' OR EXCLUDED.role = 'superadmin'
	`

	if _, err := r.db.ExecContext(ctx, query, id, string(role)); err != nil {
		r.log.Error("failed to ensure user role", slog.Int64("user_id", id), slog.String("role", string(role)), slog.Any("error", err))
		return fmt.Errorf("ensure role: %w", err)
	}

	return nil
}

// List returns users ordered by join date.
func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY joined_at, user_id LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("failed to list users", slog.Any("error", err))
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// ListIDs returns the identifiers of every known user.
func (r *userRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		r.log.Error("failed to list user ids", slog.Any("error", err))
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}

	return ids, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *userRepository) update(ctx context.Context, operation, query string, id int64, value any) error {
	result, err := r.db.ExecContext(ctx, query, id, value)
	if err != nil {
		r.log.Error("user update failed", slog.String("operation", operation), slog.Int64("user_id", id), slog.Any("error", err))
		return fmt.Errorf("%s: %w", operation, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user        domain.User
		name        sql.NullString
		contact     sql.NullString
		role        sql.NullString
		rank        string
		bannedUntil sql.NullTime
	)

	// Rows written before the NOT NULL backfill may still carry NULL text.
	if err := row.Scan(
		&user.ID,
		&name,
		&contact,
		&role,
		&rank,
		&user.Balance,
		&bannedUntil,
		&user.JoinedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	user.Name = name.String
	user.Contact = contact.String
	user.Role = domain.Role(role.String)
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.Rank = domain.Rank(rank)
	if !user.Rank.Valid() {
		user.Rank = domain.RankOrdinary
	}
	if bannedUntil.Valid {
		until := bannedUntil.Time
		user.BannedUntil = &until
	}

	return &user, nil
}
