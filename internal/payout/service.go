// Package payout issues ledger entries and answers earnings queries.
package payout

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/payout-bot/internal/domain"
	apperrors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/i18n"
	"github.com/Proton-105/payout-bot/internal/repository"
	"github.com/Proton-105/payout-bot/pkg/config"
	"github.com/Proton-105/payout-bot/pkg/metrics"
)

const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"

	defaultCurrency         = "USDT"
	defaultLeaderboardLimit = 10
	defaultHistoryLimit     = 5
)

// Notifier delivers best-effort messages to users.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) bool
}

// CacheInvalidator drops cached user rows after their balance moved.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, id int64)
}

// Service wraps the payout ledger.
type Service struct {
	repo     repository.PayoutRepository
	users    CacheInvalidator
	notifier Notifier
	t        i18n.Translator
	cfg      config.PayoutConfig
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a payout service. users and notifier may be nil.
func NewService(
	repo repository.PayoutRepository,
	users CacheInvalidator,
	notifier Notifier,
	t i18n.Translator,
	cfg config.PayoutConfig,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.LeaderboardLimit <= 0 {
		cfg.LeaderboardLimit = defaultLeaderboardLimit
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}

	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		t:        t,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Currency is the label printed next to amounts.
func (s *Service) Currency() string {
	return s.cfg.Currency
}

// Issue appends a signed payout for targetID. The target's rank multiplier is
// applied at insertion time; negative results are rejected.
func (s *Service) Issue(ctx context.Context, actor *domain.User, targetID int64, amount decimal.Decimal) (*domain.PayoutRecord, decimal.Decimal, error) {
	if actor == nil || !actor.Role.AtLeastAdmin() {
		return nil, decimal.Zero, domain.ErrForbidden
	}
	if amount.IsZero() {
		return nil, decimal.Zero, domain.ErrZeroAmount
	}

	record, balance, err := s.repo.Issue(ctx, targetID, amount, actor.ID, s.now().UTC())
	if err != nil {
		return nil, balance, err
	}

	if s.users != nil {
		s.users.Invalidate(ctx, targetID)
	}

	direction, key := DirectionCredit, "notify.credit"
	if record.Credited.IsNegative() {
		direction, key = DirectionDebit, "notify.debit"
	}
	metrics.RecordPayout(direction)

	s.log.Info("payout issued",
		slog.Int64("payout_id", record.ID),
		slog.Int64("user_id", targetID),
		slog.Int64("admin_id", actor.ID),
		slog.String("amount", record.Amount.String()),
		slog.String("multiplier", record.Multiplier.String()),
		slog.String("credited", record.Credited.String()),
	)

	if s.notifier != nil {
		text := i18n.Tf(s.t, key, record.Credited.Abs().StringFixed(2), s.cfg.Currency, balance.StringFixed(2), s.cfg.Currency)
		s.notifier.NotifyUser(ctx, targetID, text)
	}

	return record, balance, nil
}

// Leaderboard returns the top earners for period.
func (s *Service) Leaderboard(ctx context.Context, period domain.Period) ([]domain.Earner, error) {
	if !period.Valid() {
		return nil, apperrors.NewValidationError("Неизвестный период.")
	}
	return s.repo.TopEarners(ctx, period.Since(s.now().UTC()), s.cfg.LeaderboardLimit)
}

// EarnedToday sums credited amounts since the start of the current UTC day.
func (s *Service) EarnedToday(ctx context.Context) (decimal.Decimal, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.TotalSince(ctx, start)
}

// History returns the latest ledger entries of userID.
func (s *Service) History(ctx context.Context, userID int64) ([]domain.PayoutRecord, error) {
	return s.repo.ListByUser(ctx, userID, s.cfg.HistoryLimit)
}
