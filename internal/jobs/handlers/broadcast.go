package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/payout-bot/internal/broadcast"
	"github.com/Proton-105/payout-bot/internal/jobs"
)

// Broadcaster is the part of the broadcast service the workers drive.
type Broadcaster interface {
	DeliverToUsers(ctx context.Context, newsID int64, text string) (broadcast.Report, error)
	PublishPending(ctx context.Context) (int, error)
}

type BroadcastHandler struct {
	svc Broadcaster
	log *slog.Logger
}

func NewBroadcastHandler(svc Broadcaster, log *slog.Logger) *BroadcastHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BroadcastHandler{svc: svc, log: log}
}

func (h *BroadcastHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := jobs.DecodeBroadcast(t)
	if err != nil {
		h.log.ErrorContext(ctx, "broadcast: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return asynq.SkipRetry
	}

	report, err := h.svc.DeliverToUsers(ctx, payload.NewsID, payload.Text)
	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "broadcast: task done",
		slog.Int64("news_id", payload.NewsID),
		slog.Int("delivered", report.Delivered),
		slog.Int("failed", report.Failed),
	)
	return nil
}

type AutopostHandler struct {
	svc Broadcaster
	log *slog.Logger
}

func NewAutopostHandler(svc Broadcaster, log *slog.Logger) *AutopostHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AutopostHandler{svc: svc, log: log}
}

func (h *AutopostHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	published, err := h.svc.PublishPending(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "autopost: publish failed", slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}

	if published > 0 {
		h.log.InfoContext(ctx, "autopost: published pending posts", slog.Int("count", published))
	}
	return nil
}
