// Package user implements the user directory: registration, profile edits,
// role and rank changes and bans.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/domain"
	apperrors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/repository"
	"github.com/Proton-105/payout-bot/internal/usercache"
)

const (
	maxNameLength    = 64
	maxContactLength = 128
)

// Service provides business operations over users.
type Service struct {
	repo  repository.UserRepository
	cache *usercache.Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewService constructs a new Service instance. cache may be nil.
func NewService(repo repository.UserRepository, cache *usercache.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{repo: repo, cache: cache, log: log, now: time.Now}
}

// GetOrCreate fetches a user by Telegram ID or registers a fresh profile.
func (s *Service) GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.User, error) {
	if telegramUser == nil {
		return nil, errors.New("telegram user is nil")
	}

	user, err := s.Get(ctx, telegramUser.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	if err := s.repo.Create(ctx, domain.NewUser(telegramUser.ID, s.now().UTC())); err != nil {
		s.logError("get_or_create.create", telegramUser.ID, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", slog.Int64("user_id", telegramUser.ID), slog.String("username", telegramUser.Username))

	// Re-read so a concurrent registration yields the stored row.
	return s.Get(ctx, telegramUser.ID)
}

// Get returns the user, consulting the cache first.
func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	if cached, err := s.cache.Get(ctx, id); err != nil {
		s.log.Warn("user cache read failed", slog.Int64("user_id", id), slog.Any("error", err))
	} else if cached != nil {
		return cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, user); err != nil {
		s.log.Warn("user cache write failed", slog.Int64("user_id", id), slog.Any("error", err))
	}

	return user, nil
}

// UpdateName sets the display name shown on leaderboards.
func (s *Service) UpdateName(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return apperrors.NewValidationError(fmt.Sprintf("Имя должно содержать от 1 до %d символов.", maxNameLength))
	}

	return s.mutate(ctx, "update_name", id, func() error {
		return s.repo.UpdateName(ctx, id, name)
	})
}

// UpdateContact sets the wallet address used for payouts.
func (s *Service) UpdateContact(ctx context.Context, id int64, contact string) error {
	contact = strings.TrimSpace(contact)
	if contact == "" || utf8.RuneCountInString(contact) > maxContactLength || strings.ContainsAny(contact, " \n\t") {
		return apperrors.NewValidationError(fmt.Sprintf("Кошелёк должен быть одной строкой до %d символов.", maxContactLength))
	}

	return s.mutate(ctx, "update_contact", id, func() error {
		return s.repo.UpdateContact(ctx, id, contact)
	})
}

// PromoteToAdmin grants the admin role. Only the superadmin may call it.
func (s *Service) PromoteToAdmin(ctx context.Context, actor *domain.User, targetID int64) (*domain.User, error) {
	return s.setRole(ctx, actor, targetID, domain.RoleAdmin)
}

// DemoteToUser revokes the admin role. Only the superadmin may call it.
func (s *Service) DemoteToUser(ctx context.Context, actor *domain.User, targetID int64) (*domain.User, error) {
	return s.setRole(ctx, actor, targetID, domain.RoleUser)
}

func (s *Service) setRole(ctx context.Context, actor *domain.User, targetID int64, role domain.Role) (*domain.User, error) {
	if actor == nil || !actor.Role.IsSuperadmin() {
		return nil, domain.ErrForbidden
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role.IsSuperadmin() {
		return nil, domain.ErrProtectedUser
	}

	if err := s.mutate(ctx, "set_role", targetID, func() error {
		return s.repo.UpdateRole(ctx, targetID, role)
	}); err != nil {
		return nil, err
	}

	s.log.Info("user role changed",
		slog.Int64("actor_id", actor.ID),
		slog.Int64("user_id", targetID),
		slog.String("from", string(target.Role)),
		slog.String("to", string(role)),
	)

	target.Role = role
	return target, nil
}

// SetRank assigns a paid tier. Requires an admin actor.
func (s *Service) SetRank(ctx context.Context, actor *domain.User, targetID int64, rank domain.Rank) (*domain.User, error) {
	if actor == nil || !actor.Role.AtLeastAdmin() {
		return nil, domain.ErrForbidden
	}
	if !rank.Valid() {
		return nil, domain.ErrUnknownRank
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.mutate(ctx, "set_rank", targetID, func() error {
		return s.repo.UpdateRank(ctx, targetID, rank)
	}); err != nil {
		return nil, err
	}

	s.log.Info("user rank changed", slog.Int64("actor_id", actor.ID), slog.Int64("user_id", targetID), slog.String("rank", string(rank)))

	target.Rank = rank
	return target, nil
}

// Ban blocks self-service access until now+duration.
func (s *Service) Ban(ctx context.Context, actor *domain.User, targetID int64, duration time.Duration) (time.Time, error) {
	if actor == nil || !actor.Role.AtLeastAdmin() {
		return time.Time{}, domain.ErrForbidden
	}
	if duration <= 0 {
		return time.Time{}, apperrors.NewValidationError("Срок бана должен быть положительным.")
	}
	if actor.ID == targetID {
		return time.Time{}, apperrors.NewValidationError("Нельзя забанить самого себя.")
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return time.Time{}, err
	}
	if target.Role.IsSuperadmin() {
		return time.Time{}, domain.ErrProtectedUser
	}
	if target.Role.AtLeastAdmin() && !actor.Role.IsSuperadmin() {
		return time.Time{}, domain.ErrForbidden
	}

	until := s.now().UTC().Add(duration)
	if err := s.mutate(ctx, "ban", targetID, func() error {
		return s.repo.SetBannedUntil(ctx, targetID, &until)
	}); err != nil {
		return time.Time{}, err
	}

	s.log.Info("user banned", slog.Int64("actor_id", actor.ID), slog.Int64("user_id", targetID), slog.Time("until", until))
	return until, nil
}

// Unban clears any ban. Requires an admin actor.
func (s *Service) Unban(ctx context.Context, actor *domain.User, targetID int64) error {
	if actor == nil || !actor.Role.AtLeastAdmin() {
		return domain.ErrForbidden
	}

	if err := s.mutate(ctx, "unban", targetID, func() error {
		return s.repo.SetBannedUntil(ctx, targetID, nil)
	}); err != nil {
		return err
	}

	s.log.Info("user unbanned", slog.Int64("actor_id", actor.ID), slog.Int64("user_id", targetID))
	return nil
}

// List returns one page of users (1-based) and the total count.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]domain.User, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	users, err := s.repo.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Count returns the number of registered users.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// RecipientIDs lists every user a broadcast should reach.
func (s *Service) RecipientIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListIDs(ctx)
}

// Bootstrap makes sure the configured staff exists with the right roles.
// The first id is the superadmin.
func (s *Service) Bootstrap(ctx context.Context, superadminID int64, adminIDs []int64) error {
	if superadminID != 0 {
		if err := s.repo.EnsureRole(ctx, superadminID, domain.RoleSuperadmin); err != nil {
			return fmt.Errorf("bootstrap superadmin: %w", err)
		}
		s.Invalidate(ctx, superadminID)
	}

	for _, id := range adminIDs {
		if id == 0 || id == superadminID {
			continue
		}
		if err := s.repo.EnsureRole(ctx, id, domain.RoleAdmin); err != nil {
			return fmt.Errorf("bootstrap admin %d: %w", id, err)
		}
		s.Invalidate(ctx, id)
	}

	s.log.Info("staff bootstrapped", slog.Int64("superadmin_id", superadminID), slog.Int("admins", len(adminIDs)))
	return nil
}

// Invalidate drops the cached copy after an out-of-band change such as a payout.
func (s *Service) Invalidate(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn("user cache invalidation failed", slog.Int64("user_id", id), slog.Any("error", err))
	}
}

func (s *Service) mutate(ctx context.Context, operation string, id int64, fn func() error) error {
	if err := fn(); err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.logError(operation, id, err)
		}
		return err
	}

	s.Invalidate(ctx, id)
	return nil
}

func (s *Service) logError(operation string, userID int64, err error) {
	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("user_id", userID),
		slog.Any("error", err),
	)
}
