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

// ApplicationRepository persists user applications.
type ApplicationRepository interface {
	Create(ctx context.Context, userID int64, message string, now time.Time) (*domain.Application, error)
	FindByID(ctx context.Context, id int64) (*domain.Application, error)
	ListPending(ctx context.Context, limit int) ([]domain.Application, error)
	CountPending(ctx context.Context) (int, error)
	Resolve(ctx context.Context, id int64, status domain.ApplicationStatus, adminID int64, now time.Time) (*domain.Application, error)
}

const applicationColumns = `id, user_id, message, status, resolved_by, resolved_at, created_at`

type applicationRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewApplicationRepository creates a SQL-backed application repository.
func NewApplicationRepository(db *sql.DB, log *slog.Logger) ApplicationRepository {
	if log == nil {
		log = slog.Default()
	}

	return &applicationRepository{db: db, log: log}
}

func (r *applicationRepository) Create(ctx context.Context, userID int64, message string, now time.Time) (*domain.Application, error) {
	const query = `
		INSERT INTO applications (user_id, message, status, created_at)
		VALUES ($1, $2, 'pending', $3)
		RETURNING ` + applicationColumns

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, userID, message, now))
	if err != nil {
		r.log.Error("failed to create application", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("insert application: %w", err)
	}

	return app, nil
}

func (r *applicationRepository) FindByID(ctx context.Context, id int64) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("select application: %w", err)
	}

	return app, nil
}

func (r *applicationRepository) ListPending(ctx context.Context, limit int) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE status = 'pending' ORDER BY created_at, id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.log.Error("failed to list pending applications", slog.Any("error", err))
		return nil, fmt.Errorf("list pending applications: %w", err)
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, *app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	return apps, nil
}

func (r *applicationRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications WHERE status = 'pending'`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending applications: %w", err)
	}
	return count, nil
}

// Resolve moves a pending application to status. The update is conditional on the
// row still being pending, so only one resolver can ever win.
func (r *applicationRepository) Resolve(ctx context.Context, id int64, status domain.ApplicationStatus, adminID int64, now time.Time) (*domain.Application, error) {
	const query = `
		UPDATE applications
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + applicationColumns

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id, string(status), adminID, now))
	if err == nil {
		return app, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		r.log.Error("failed to resolve application", slog.Int64("application_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("resolve application: %w", err)
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}

	return nil, domain.ErrAlreadyResolved
}

func scanApplication(row scanner) (*domain.Application, error) {
	var (
		app        domain.Application
		message    sql.NullString
		status     string
		resolvedBy sql.NullInt64
		resolvedAt sql.NullTime
	)

	if err := row.Scan(
		&app.ID,
		&app.UserID,
		&message,
		&status,
		&resolvedBy,
		&resolvedAt,
		&app.CreatedAt,
	); err != nil {
		return nil, err
	}

	app.Message = message.String
	app.Status = domain.ApplicationStatus(status)
	if resolvedBy.Valid {
		by := resolvedBy.Int64
		app.ResolvedBy = &by
	}
	if resolvedAt.Valid {
		at := resolvedAt.Time
		app.ResolvedAt = &at
	}

	return &app, nil
}
