package errors

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/payout-bot/pkg/logger"
	"github.com/Proton-105/payout-bot/pkg/metrics"
)

const fallbackUserMessage = "Произошла ошибка. Попробуйте позже"

// Handler logs failed updates, counts them and forwards severe ones to Sentry.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle records err and returns the text to show the user together with
// whether the operation may succeed if repeated.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	appErr, known := classify(err)
	if !known {
		appErr = &AppError{
			Code:        "E000",
			Message:     err.Error(),
			UserMessage: fallbackUserMessage,
			Severity:    SeverityHigh,
			cause:       err,
		}
	}

	attrs := []any{
		slog.String("code", appErr.Code),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
		slog.Any("error", err),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	switch appErr.Severity {
	case SeverityLow:
		h.log.Warn("update rejected", attrs...)
	default:
		h.log.Error("update failed", attrs...)
	}

	metrics.RecordError(appErr.Code, string(appErr.Severity))

	if h.sentryEnabled && (appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical) {
		capture(ctx, appErr, err)
	}

	if appErr.UserMessage == "" {
		return fallbackUserMessage, appErr.Retryable
	}
	return appErr.UserMessage, appErr.Retryable
}

func capture(ctx context.Context, appErr *AppError, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}
		hub.CaptureException(err)
	})
}
