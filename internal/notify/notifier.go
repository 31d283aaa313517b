// Package notify delivers best-effort messages to users and channels.
package notify

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/pkg/config"
	"github.com/Proton-105/payout-bot/pkg/metrics"
)

const (
	TargetUser    = "user"
	TargetChannel = "channel"
)

// Sender is the subset of *telebot.Bot used for outgoing messages.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Notifier paces outgoing messages with a shared token bucket.
// Failed deliveries are logged and counted, never retried.
type Notifier struct {
	sender  Sender
	limiter *rate.Limiter
	log     *slog.Logger
}

// New builds a Notifier. A zero rate disables pacing.
func New(sender Sender, cfg config.BroadcastConfig, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Notifier{
		sender:  sender,
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

// NotifyUser sends text to a private chat and reports whether it was delivered.
func (n *Notifier) NotifyUser(ctx context.Context, userID int64, text string) bool {
	return n.deliver(ctx, TargetUser, userID, text)
}

// NotifyChannel posts text to a channel and reports whether it was delivered.
func (n *Notifier) NotifyChannel(ctx context.Context, chatID int64, text string) bool {
	return n.deliver(ctx, TargetChannel, chatID, text)
}

func (n *Notifier) deliver(ctx context.Context, target string, chatID int64, text string) bool {
	if n == nil || n.sender == nil || chatID == 0 || text == "" {
		return false
	}

	if err := n.limiter.Wait(ctx); err != nil {
		n.log.Debug("delivery aborted", slog.String("target", target), slog.Int64("chat_id", chatID), slog.Any("error", err))
		metrics.RecordDelivery(target, false)
		return false
	}

	if _, err := n.sender.Send(telebot.ChatID(chatID), text); err != nil {
		n.log.Warn("delivery failed", slog.String("target", target), slog.Int64("chat_id", chatID), slog.Any("error", err))
		metrics.RecordDelivery(target, false)
		return false
	}

	metrics.RecordDelivery(target, true)
	return true
}
