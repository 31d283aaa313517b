package bot

import (
	"encoding/json"
	"log/slog"
	"net/http"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/handlers"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// ContextFactory builds a handler context for a raw update. *telebot.Bot implements it.
type ContextFactory interface {
	NewContext(u telebot.Update) telebot.Context
}

// UpdateRouter processes one update context.
type UpdateRouter interface {
	Route(c telebot.Context) error
}

// WebhookHandler receives Telegram updates over HTTP. It answers 200 with an
// empty body once the update is handled and 500 with the error text when
// handling fails, so Telegram delivers the update again.
type WebhookHandler struct {
	factory ContextFactory
	router  UpdateRouter
	secret  string
	log     *slog.Logger
}

// NewWebhookHandler returns a new WebhookHandler instance.
func NewWebhookHandler(factory ContextFactory, router UpdateRouter, secret string, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{factory: factory, router: router, secret: secret, log: log}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.secret != "" && r.Header.Get(secretTokenHeader) != h.secret {
		h.log.Warn("webhook request with invalid secret token", slog.String("remote_addr", r.RemoteAddr))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var update telebot.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.log.Warn("failed to decode webhook update", slog.Any("error", err))
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	c := h.factory.NewContext(update)
	handlers.WithRequestContext(c, r.Context())

	if err := h.router.Route(c); err != nil {
		h.log.Error("webhook update failed", slog.Int("update_id", update.ID), slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
