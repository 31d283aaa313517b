package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/handlers"
	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/idempotency"
	"github.com/Proton-105/payout-bot/internal/middleware"
	"github.com/Proton-105/payout-bot/internal/state"
	"github.com/Proton-105/payout-bot/pkg/config"
)

// Bot wraps telebot.Bot with the router that handles its updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	router     *Router
	dispatcher *Dispatcher
	deps       *handlers.Deps
	errHandler *apperrors.Handler
}

// Options carries the optional cross-cutting components.
type Options struct {
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
}

// NewTelebot creates the API client. Webhook mode never starts the poller,
// updates arrive through Webhook instead.
func NewTelebot(cfg config.BotConfig, log *slog.Logger) (*telebot.Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: timeout},
		OnError: func(err error, c telebot.Context) {
			log.Error("telegram update failed", slog.Any("error", err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return tb, nil
}

// New wires the router for every command, button, callback, and wizard step.
func New(tb *telebot.Bot, cfg config.Config, deps *handlers.Deps, opts Options) (*Bot, error) {
	if deps == nil || deps.FSM == nil || deps.Users == nil {
		return nil, errors.New("bot: handler dependencies are incomplete")
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	dispatcher := NewDispatcher(deps.FSM, log)
	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		router:     NewRouter(dispatcher, log),
		dispatcher: dispatcher,
		deps:       deps,
		errHandler: apperrors.NewHandler(log, cfg.Sentry.Enabled),
	}

	b.setupRouter(opts)

	return b, nil
}

func (b *Bot) setupRouter(opts Options) {
	d := b.deps
	r := b.router

	r.Use(RecoveryMiddleware(b.log, b.errHandler))
	r.Use(middleware.Idempotency(opts.Idempotency, b.log))
	r.Use(ErrorHandlingMiddleware(b.errHandler, d.T))
	r.Use(LoggingMiddleware(b.log))
	r.Use(middleware.Metrics)
	r.Use(AuthMiddleware(d.Users, b.log))
	if opts.RateLimit != nil {
		r.Use(opts.RateLimit.Handle)
	}

	admin := RequireAdmin(d.T)
	superadmin := RequireSuperadmin(d.T)
	active := RequireNotBanned(d.T, d.Now)

	// Entry points.
	r.RegisterCommand(CommandStart, handlers.NewStartHandler(d))
	r.RegisterCommand(CommandCancel, handlers.NewCancelHandler(d))
	r.RegisterCommand(CommandProfile, handlers.NewProfileHandler(d), active)
	r.RegisterCommand(CommandApply, handlers.NewApplyHandler(d), active)
	r.RegisterCommand(CommandAdmin, handlers.NewAdminPanelHandler(d), admin)

	r.RegisterText(translate(d.T, "menu.profile"), handlers.NewProfileHandler(d), active)
	r.RegisterText(translate(d.T, "menu.apply"), handlers.NewApplyHandler(d), active)
	r.RegisterText(translate(d.T, "menu.admin"), handlers.NewAdminPanelHandler(d), admin)
	r.RegisterText(translate(d.T, "common.cancel"), handlers.NewCancelHandler(d))

	// Inline buttons.
	r.RegisterCallback(keyboard.ActionCancel, handlers.NewCancelHandler(d))
	r.RegisterCallback(keyboard.ActionProfile, handlers.NewProfileCallbackHandler(d), active)
	r.RegisterCallback(keyboard.ActionTop, handlers.NewLeaderboardHandler(d), active)
	r.RegisterCallback(keyboard.ActionAdmin, handlers.NewAdminCallbackHandler(d), admin)
	r.RegisterCallback(keyboard.ActionUsers, handlers.NewUsersPageHandler(d), admin)
	r.RegisterCallback(keyboard.ActionApprove, handlers.NewApproveHandler(d), admin)
	r.RegisterCallback(keyboard.ActionReject, handlers.NewRejectHandler(d), admin)
	r.RegisterCallback(keyboard.ActionManage, handlers.NewManageCallbackHandler(d), admin)
	r.RegisterCallback(keyboard.ActionRank, handlers.NewRankCallbackHandler(d), admin)
	r.RegisterCallback(keyboard.ActionPost, handlers.NewPostCallbackHandler(d), admin)

	// Wizard steps.
	b.dispatcher.RegisterStateHandler(state.StateProfileName, handlers.NewProfileNameStep(d), active)
	b.dispatcher.RegisterStateHandler(state.StateProfileWallet, handlers.NewProfileWalletStep(d), active)
	b.dispatcher.RegisterStateHandler(state.StateApplicationMessage, handlers.NewApplicationMessageStep(d), active)

	b.dispatcher.RegisterStateHandler(state.StateAssignAdminUser, handlers.NewAssignAdminStep(d), superadmin)
	b.dispatcher.RegisterStateHandler(state.StateRevokeAdminUser, handlers.NewRevokeAdminStep(d), superadmin)
	b.dispatcher.RegisterStateHandler(state.StateRankUser, handlers.NewTargetStep(d, state.StateRankValue, "admin.ask_rank"), admin)
	b.dispatcher.RegisterStateHandler(state.StateRankValue, handlers.NewRankValueStep(d), admin)
	b.dispatcher.RegisterStateHandler(state.StatePayoutUser, handlers.NewTargetStep(d, state.StatePayoutAmount, "admin.ask_amount"), admin)
	b.dispatcher.RegisterStateHandler(state.StatePayoutAmount, handlers.NewPayoutAmountStep(d), admin)
	b.dispatcher.RegisterStateHandler(state.StateBanUser, handlers.NewTargetStep(d, state.StateBanDuration, "admin.ask_ban_duration"), admin)
	b.dispatcher.RegisterStateHandler(state.StateBanDuration, handlers.NewBanDurationStep(d), admin)
	b.dispatcher.RegisterStateHandler(state.StateUnbanUser, handlers.NewUnbanStep(d), admin)
	b.dispatcher.RegisterStateHandler(state.StatePostUsersText, handlers.NewPostUsersStep(d), admin)
	b.dispatcher.RegisterStateHandler(state.StatePostChannelText, handlers.NewPostChannelStep(d), admin)

	r.SetDefault(handlers.NewUnknownHandler(d))
}

// Router exposes the update router.
func (b *Bot) Router() *Router {
	return b.router
}

// Webhook returns the HTTP handler Telegram posts updates to.
func (b *Bot) Webhook() http.Handler {
	return NewWebhookHandler(b.telebot, b.router, b.cfg.Bot.WebhookSecret, b.log)
}

// RegisterWebhook points Telegram at the public base URL joined with the
// path the HTTP server mounts Webhook on.
func (b *Bot) RegisterWebhook() error {
	url := WebhookURL(b.cfg.Bot.WebhookURL, b.cfg.Bot.WebhookPath)
	b.log.Info("registering webhook", slog.String("url", url))

	return b.telebot.SetWebhook(&telebot.Webhook{
		Endpoint:    &telebot.WebhookEndpoint{PublicURL: url},
		SecretToken: b.cfg.Bot.WebhookSecret,
	})
}

// WebhookURL joins a public base URL and a mount path with exactly one slash.
func WebhookURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

// Start runs the long-polling loop. It blocks until Stop is called.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}
