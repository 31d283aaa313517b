package handlers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/broadcast"
	"github.com/Proton-105/payout-bot/internal/domain"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler = Handler

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

const (
	requestContextKey = "request_ctx"
	currentUserKey    = "current_user"
)

// WithRequestContext attaches the transport context to c.
func WithRequestContext(c telebot.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(requestContextKey, ctx)
	}
}

// RequestContext returns the context stored by WithRequestContext.
func RequestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(requestContextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// SetCurrentUser stores the resolved sender for downstream handlers.
func SetCurrentUser(c telebot.Context, u *domain.User) {
	if c != nil && u != nil {
		c.Set(currentUserKey, u)
	}
}

// CurrentUser returns the sender resolved by the auth middleware.
func CurrentUser(c telebot.Context) *domain.User {
	if c == nil {
		return nil
	}
	u, _ := c.Get(currentUserKey).(*domain.User)
	return u
}

// UserService is the user directory as seen by handlers.
type UserService interface {
	GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateContact(ctx context.Context, id int64, contact string) error
	PromoteToAdmin(ctx context.Context, actor *domain.User, targetID int64) (*domain.User, error)
	DemoteToUser(ctx context.Context, actor *domain.User, targetID int64) (*domain.User, error)
	SetRank(ctx context.Context, actor *domain.User, targetID int64, rank domain.Rank) (*domain.User, error)
	Ban(ctx context.Context, actor *domain.User, targetID int64, duration time.Duration) (time.Time, error)
	Unban(ctx context.Context, actor *domain.User, targetID int64) error
	List(ctx context.Context, page, pageSize int) ([]domain.User, int, error)
	Count(ctx context.Context) (int, error)
}

// ApplicationService is the application lifecycle as seen by handlers.
type ApplicationService interface {
	Submit(ctx context.Context, userID int64, message string) (*domain.Application, error)
	ListPending(ctx context.Context, limit int) ([]domain.Application, error)
	CountPending(ctx context.Context) (int, error)
	Approve(ctx context.Context, actor *domain.User, id int64) (*domain.Application, error)
	Reject(ctx context.Context, actor *domain.User, id int64) (*domain.Application, error)
}

// PayoutService is the payout ledger as seen by handlers.
type PayoutService interface {
	Issue(ctx context.Context, actor *domain.User, targetID int64, amount decimal.Decimal) (*domain.PayoutRecord, decimal.Decimal, error)
	Leaderboard(ctx context.Context, period domain.Period) ([]domain.Earner, error)
	EarnedToday(ctx context.Context) (decimal.Decimal, error)
	History(ctx context.Context, userID int64) ([]domain.PayoutRecord, error)
	Currency() string
}

// BroadcastService posts admin news.
type BroadcastService interface {
	PostToUsers(ctx context.Context, actor *domain.User, text string) (*domain.News, error)
	PostToChannels(ctx context.Context, actor *domain.User, text string) (broadcast.Report, error)
	PublishPending(ctx context.Context) (int, error)
}

// Notifier delivers best-effort messages to users.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) bool
}
