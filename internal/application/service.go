// Package application handles user applications and their one-time resolution.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Proton-105/payout-bot/internal/domain"
	apperrors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/i18n"
	"github.com/Proton-105/payout-bot/internal/repository"
	"github.com/Proton-105/payout-bot/pkg/metrics"
)

const (
	maxMessageLength   = 4000
	defaultPendingPage = 20
)

// Notifier delivers best-effort messages to users.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) bool
}

// Service implements the application lifecycle.
type Service struct {
	repo     repository.ApplicationRepository
	notifier Notifier
	t        i18n.Translator
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates an application service. notifier may be nil.
func NewService(repo repository.ApplicationRepository, notifier Notifier, t i18n.Translator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{repo: repo, notifier: notifier, t: t, log: log, now: time.Now}
}

// Submit stores a new pending application for userID.
func (s *Service) Submit(ctx context.Context, userID int64, message string) (*domain.Application, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("Сообщение не может быть пустым.")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Сообщение длиннее %d символов.", maxMessageLength))
	}

	app, err := s.repo.Create(ctx, userID, message, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.log.Info("application submitted", slog.Int64("application_id", app.ID), slog.Int64("user_id", userID))
	return app, nil
}

// ListPending returns the oldest pending applications first.
func (s *Service) ListPending(ctx context.Context, limit int) ([]domain.Application, error) {
	if limit <= 0 {
		limit = defaultPendingPage
	}
	return s.repo.ListPending(ctx, limit)
}

// CountPending returns how many applications await a decision.
func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.repo.CountPending(ctx)
}

// Approve accepts a pending application and notifies its author.
func (s *Service) Approve(ctx context.Context, actor *domain.User, id int64) (*domain.Application, error) {
	return s.resolve(ctx, actor, id, domain.ApplicationApproved, "application.approved_notice")
}

// Reject declines a pending application and notifies its author.
func (s *Service) Reject(ctx context.Context, actor *domain.User, id int64) (*domain.Application, error) {
	return s.resolve(ctx, actor, id, domain.ApplicationRejected, "application.rejected_notice")
}

// resolve performs the pending -> terminal transition. Losing a race returns
// domain.ErrAlreadyResolved and sends nothing.
func (s *Service) resolve(ctx context.Context, actor *domain.User, id int64, status domain.ApplicationStatus, noticeKey string) (*domain.Application, error) {
	if actor == nil || !actor.Role.AtLeastAdmin() {
		return nil, domain.ErrForbidden
	}

	app, err := s.repo.Resolve(ctx, id, status, actor.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.RecordApplicationResolved(string(status))
	s.log.Info("application resolved",
		slog.Int64("application_id", id),
		slog.Int64("user_id", app.UserID),
		slog.Int64("admin_id", actor.ID),
		slog.String("status", string(status)),
	)

	if s.notifier != nil && !s.notifier.NotifyUser(ctx, app.UserID, i18n.Tf(s.t, noticeKey)) {
		s.log.Debug("application notice not delivered", slog.Int64("application_id", id), slog.Int64("user_id", app.UserID))
	}

	return app, nil
}
