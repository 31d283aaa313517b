package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/payout-bot/internal/application"
	"github.com/Proton-105/payout-bot/internal/bot"
	"github.com/Proton-105/payout-bot/internal/bot/handlers"
	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
	"github.com/Proton-105/payout-bot/internal/broadcast"
	"github.com/Proton-105/payout-bot/internal/database"
	apperrors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/health"
	"github.com/Proton-105/payout-bot/internal/i18n"
	"github.com/Proton-105/payout-bot/internal/idempotency"
	"github.com/Proton-105/payout-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/payout-bot/internal/jobs/handlers"
	"github.com/Proton-105/payout-bot/internal/lifecycle"
	"github.com/Proton-105/payout-bot/internal/middleware"
	"github.com/Proton-105/payout-bot/internal/notify"
	"github.com/Proton-105/payout-bot/internal/payout"
	"github.com/Proton-105/payout-bot/internal/ratelimit"
	"github.com/Proton-105/payout-bot/internal/repository"
	"github.com/Proton-105/payout-bot/internal/state"
	"github.com/Proton-105/payout-bot/internal/user"
	"github.com/Proton-105/payout-bot/internal/usercache"
	"github.com/Proton-105/payout-bot/pkg/config"
	"github.com/Proton-105/payout-bot/pkg/graceful"
	"github.com/Proton-105/payout-bot/pkg/logger"
	"github.com/Proton-105/payout-bot/pkg/metrics"
	"github.com/Proton-105/payout-bot/pkg/redis"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	stateCollectInterval       = 30 * time.Second
	idempotencyCleanupInterval = time.Hour
	defaultRateLimitWindow     = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "payout-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitSentry(*cfg, version); err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer sentry.Flush(2 * time.Second)

	log := logger.New(*cfg)
	log.Info("starting payout bot",
		slog.String("version", version),
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("port", cfg.Server.Port),
	)

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.NewMigrator(db, log).ApplyEmbedded(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}

	var rc *redis.Client
	err = apperrors.WithRetry(ctx, func() error {
		c, err := redis.New(ctx, redis.FromConfig(cfg.Redis))
		if err != nil {
			return apperrors.NewExternalAPIError("redis", err)
		}
		rc = c
		return nil
	})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("connect redis: %w", err)
	}

	tb, err := bot.NewTelebot(cfg.Bot, log)
	if err != nil {
		_ = rc.Close()
		_ = db.Close()
		return err
	}

	tr, err := i18n.Load(cfg.I18n.DefaultLanguage)
	if err != nil {
		_ = rc.Close()
		_ = db.Close()
		return fmt.Errorf("load translations: %w", err)
	}
	for _, lang := range tr.Languages() {
		if missing := tr.Missing(lang); len(missing) > 0 {
			log.Warn("translations incomplete", slog.String("lang", lang), slog.Any("keys", missing))
		}
	}
	t := tr.Translator(cfg.I18n.DefaultLanguage)

	notifier := notify.New(tb, cfg.Broadcast, log)

	users := user.NewService(
		repository.NewUserRepository(db, log),
		usercache.NewCache(redis.NewMetricsClient(rc), cfg.Cache.UserTTL),
		log,
	)
	if err := users.Bootstrap(ctx, cfg.Admin.SuperadminID, cfg.Admin.AdminIDs); err != nil {
		_ = rc.Close()
		_ = db.Close()
		return err
	}

	applications := application.NewService(repository.NewApplicationRepository(db, log), notifier, t, log)
	payouts := payout.NewService(repository.NewPayoutRepository(db, log), users, notifier, t, cfg.Payout, log)

	var (
		queue     broadcast.Enqueuer
		jobClient jobs.Manager
	)
	if cfg.Jobs.Enabled {
		jobClient = jobs.NewManager(jobs.RedisOpt(cfg.Redis), log)
		queue = jobClient
	}
	news := broadcast.NewService(repository.NewNewsRepository(db, log), users, notifier, queue, cfg.Admin.ChannelIDs, log)

	storage := state.NewRedisStorage(rc.Client, log, cfg.State.TTL)
	fsm := state.NewStateMachine(storage, log, rc.Client)

	idem := idempotency.NewManager(idempotency.NewRedisStore(rc.Client, log), log)

	fallback := ratelimit.NewMemoryLimiter(log)
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rc.Client, log), fallback, log)
	rules := ratelimit.NewRules(cfg.RateLimit, cfg.Admin.StaffIDs()...)

	config.Watch(v, log, func(next *config.Config) {
		logger.SetLevel(next.Logger.Level)
		rules.Reload(next.RateLimit)
	})

	deps := &handlers.Deps{
		Users:        users,
		Applications: applications,
		Payouts:      payouts,
		Broadcast:    news,
		Notifier:     notifier,
		FSM:          fsm,
		Keyboard:     keyboard.NewBuilder(t, log),
		T:            t,
		Log:          log,
		Now:          time.Now,
	}

	b, err := bot.New(tb, *cfg, deps, bot.Options{
		Idempotency: idem,
		RateLimit:   middleware.NewRateLimitMiddleware(limiter, rules, log),
	})
	if err != nil {
		_ = rc.Close()
		_ = db.Close()
		return fmt.Errorf("build bot: %w", err)
	}

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	_, window, err := rules.GetPerUserLimit()
	if err != nil || window <= 0 {
		window = defaultRateLimitWindow
	}
	go ratelimit.NewCleaner(rc.Client, fallback, window, log, cfg.RateLimit.CleanupInterval).Run(bgCtx)
	go idempotency.NewCleaner(rc.Client, log, idempotency.DefaultTTL, idempotencyCleanupInterval).Run(bgCtx)
	go state.NewCleaner(storage, log, cfg.State.TTL, cfg.State.CleanupInterval).Run(bgCtx)
	go metrics.NewStateCollector(fsm, stateCollectInterval).Run(bgCtx)

	var (
		worker    jobs.Worker
		scheduler jobs.Scheduler
	)
	if cfg.Jobs.Enabled {
		redisOpt := jobs.RedisOpt(cfg.Redis)

		worker = jobs.NewWorker(redisOpt, cfg.Jobs.Concurrency, log)
		worker.RegisterHandler(jobs.TaskTypeBroadcastUsers, jobhandlers.NewBroadcastHandler(news, log))
		worker.RegisterHandler(jobs.TaskTypeNewsAutopost, jobhandlers.NewAutopostHandler(news, log))
		if err := worker.Run(); err != nil {
			log.Error("job worker failed to start", slog.Any("error", err))
		}

		if cfg.News.AutopostEnabled {
			scheduler = jobs.NewScheduler(redisOpt, log)
			if err := scheduler.RegisterTasks(cfg.News.AutopostSpec); err != nil {
				log.Error("autopost schedule rejected", slog.String("spec", cfg.News.AutopostSpec), slog.Any("error", err))
				scheduler = nil
			} else {
				scheduler.Run()
			}
		}
	} else if cfg.News.AutopostEnabled {
		log.Warn("autopost requires background jobs, skipping", slog.Bool("jobs_enabled", false))
	}

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(rc.Client))
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))
	probes := lifecycle.NewProbes(log, checker)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", probes.LivenessHandler())
	mux.Handle("/readyz", probes.ReadinessHandler())
	if cfg.Bot.IsWebhook() {
		mux.Handle(cfg.Bot.WebhookPath, b.Webhook())
	}

	srv := graceful.NewServer(log, cfg.Server.Port, logger.Middleware(mux), cfg.Server.ShutdownTimeout)
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	if cfg.Bot.IsWebhook() {
		if err := b.RegisterWebhook(); err != nil {
			log.Error("webhook registration failed", slog.Any("error", err))
			stop()
		}
	} else {
		if err := tb.RemoveWebhook(); err != nil {
			log.Warn("failed to remove webhook before polling", slog.Any("error", err))
		}
		go b.Start()
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	probes.MarkShuttingDown()

	shutdown := lifecycle.NewShutdown(log)
	if !cfg.Bot.IsWebhook() {
		shutdown.RegisterPhase(lifecycle.PhaseDrain, "telegram poller", func(context.Context) error {
			b.Stop()
			return nil
		})
	}
	shutdown.RegisterPhase(lifecycle.PhaseDrain, "http server", func(ctx context.Context) error {
		select {
		case <-serverDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if scheduler != nil {
		shutdown.RegisterPhase(lifecycle.PhaseDrain, "job scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	}
	if worker != nil {
		shutdown.RegisterPhase(lifecycle.PhaseDrain, "job worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})
	}
	shutdown.RegisterPhase(lifecycle.PhaseDrain, "background loops", func(context.Context) error {
		cancelBackground()
		return nil
	})

	if jobClient != nil {
		shutdown.RegisterPhase(lifecycle.PhaseClose, "job client", func(context.Context) error {
			return jobClient.Close()
		})
	}
	shutdown.RegisterPhase(lifecycle.PhaseClose, "redis", func(context.Context) error {
		return rc.Close()
	})
	shutdown.RegisterPhase(lifecycle.PhaseClose, "postgres", func(context.Context) error {
		return db.Close()
	})

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
		return err
	}

	log.Info("payout bot stopped")
	return nil
}
