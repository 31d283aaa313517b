package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/payout-bot/internal/domain"
)

// NewsRepository stores admin posts awaiting channel publication.
type NewsRepository interface {
	Create(ctx context.Context, content string, authorID int64, sent bool, now time.Time) (*domain.News, error)
	ListUnsent(ctx context.Context, limit int) ([]domain.News, error)
	// MarkSent flips the sent flag once; it reports false when the post was already sent.
	MarkSent(ctx context.Context, id int64, now time.Time) (bool, error)
}

type newsRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewNewsRepository creates a SQL-backed news repository.
func NewNewsRepository(db *sql.DB, log *slog.Logger) NewsRepository {
	if log == nil {
		log = slog.Default()
	}

	return &newsRepository{db: db, log: log}
}

func (r *newsRepository) Create(ctx context.Context, content string, authorID int64, sent bool, now time.Time) (*domain.News, error) {
	const query = `
		INSERT INTO news (content, author_id, sent, created_at, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var sentAt sql.NullTime
	if sent {
		sentAt = sql.NullTime{Time: now, Valid: true}
	}

	news := &domain.News{Content: content, AuthorID: authorID, Sent: sent, CreatedAt: now}
	if err := r.db.QueryRowContext(ctx, query, content, authorID, sent, now, sentAt).Scan(&news.ID); err != nil {
		r.log.Error("failed to create news", slog.Int64("author_id", authorID), slog.Any("error", err))
		return nil, fmt.Errorf("insert news: %w", err)
	}
	if sent {
		news.SentAt = &now
	}

	return news, nil
}

func (r *newsRepository) ListUnsent(ctx context.Context, limit int) ([]domain.News, error) {
	const query = `
		SELECT id, content, author_id, created_at
		FROM news
		WHERE sent = FALSE
		ORDER BY created_at, id
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsent news: %w", err)
	}
	defer rows.Close()

	var items []domain.News
	for rows.Next() {
		var (
			n       domain.News
			content sql.NullString
		)
		if err := rows.Scan(&n.ID, &content, &n.AuthorID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		n.Content = content.String
		items = append(items, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news: %w", err)
	}

	return items, nil
}

func (r *newsRepository) MarkSent(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE news SET sent = TRUE, sent_at = $2 WHERE id = $1 AND sent = FALSE`, id, now)
	if err != nil {
		r.log.Error("failed to mark news sent", slog.Int64("news_id", id), slog.Any("error", err))
		return false, fmt.Errorf("mark news sent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark news sent rows affected: %w", err)
	}

	return affected == 1, nil
}
