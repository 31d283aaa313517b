// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// legacyEnv maps config keys to the environment names used by earlier deployments.
var legacyEnv = map[string][]string{
	"bot.token":           {"BOT_TOKEN"},
	"bot.webhook_url":     {"BOT_WEBHOOK_URL", "WEBHOOK_URL"},
	"database.url":        {"DATABASE_URL"},
	"admin.superadmin_id": {"ADMIN_SUPERADMIN_ID", "SUPERADMIN_ID"},
	"admin.admin_ids":     {"ADMIN_ADMIN_IDS", "ADMIN_IDS", "SUPER_ADMINS"},
	"admin.channel_ids":   {"ADMIN_CHANNEL_IDS", "CHANNEL_IDS"},
	"redis.addr":          {"REDIS_ADDR"},
	"sentry.dsn":          {"SENTRY_DSN"},
}

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// env files are optional outside local development
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	cfg, v, err := LoadFrom(fmt.Sprintf("./configs/%s.yaml", env))
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// LoadFrom reads the YAML file at path (when present) merged with environment overrides.
func LoadFrom(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Watch re-decodes the configuration whenever the backing file changes and hands the result to onChange.
// Invalid edits are logged and ignored.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || v.ConfigFileUsed() == "" || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			log.Warn("config reload rejected", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if cfg.Database.URL == "" && cfg.Database.Name == "" {
		return nil, errors.New("validate config: database.url or database.name is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.webhook_path", "/telegram/webhook")

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.per_user.limit", 30)
	v.SetDefault("rate_limit.per_user.window", "1m")
	v.SetDefault("rate_limit.cleanup_interval", 5*time.Minute)

	v.SetDefault("payout.currency", "USDT")
	v.SetDefault("payout.leaderboard_limit", 10)
	v.SetDefault("payout.history_limit", 5)

	v.SetDefault("broadcast.rate_per_second", 25)
	v.SetDefault("broadcast.burst", 1)

	v.SetDefault("news.autopost_enabled", true)
	v.SetDefault("news.autopost_spec", "@every 1h")

	v.SetDefault("state.ttl", 24*time.Hour)
	v.SetDefault("state.cleanup_interval", 10*time.Minute)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.concurrency", 5)

	v.SetDefault("cache.user_ttl", 5*time.Minute)

	v.SetDefault("i18n.default_language", "ru")
}
