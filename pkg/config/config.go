package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the payout bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Bot       BotConfig       `mapstructure:"bot"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Payout    PayoutConfig    `mapstructure:"payout"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	News      NewsConfig      `mapstructure:"news"`
	State     StateConfig     `mapstructure:"state"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Cache     CacheConfig     `mapstructure:"cache"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	// File enables rotation through lumberjack when set.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

type BotConfig struct {
	Token       string        `mapstructure:"token" validate:"required"`
	Mode        string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout     time.Duration `mapstructure:"timeout"`
	WebhookURL  string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	WebhookPath string        `mapstructure:"webhook_path"`
	// WebhookSecret is echoed back by Telegram in X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// URL takes precedence over the discrete connection fields.
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	PerUser         RateLimitRule `mapstructure:"per_user"`
	Whitelist       []int64       `mapstructure:"whitelist"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type AdminConfig struct {
	SuperadminID int64   `mapstructure:"superadmin_id" validate:"required"`
	AdminIDs     []int64 `mapstructure:"admin_ids"`
	ChannelIDs   []int64 `mapstructure:"channel_ids"`
}

type PayoutConfig struct {
	Currency         string `mapstructure:"currency"`
	LeaderboardLimit int    `mapstructure:"leaderboard_limit" validate:"gte=1,lte=50"`
	HistoryLimit     int    `mapstructure:"history_limit" validate:"gte=0,lte=50"`
}

type BroadcastConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst         int     `mapstructure:"burst" validate:"gte=1"`
}

type NewsConfig struct {
	AutopostEnabled bool   `mapstructure:"autopost_enabled"`
	AutopostSpec    string `mapstructure:"autopost_spec"`
}

type StateConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type JobsConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Concurrency int  `mapstructure:"concurrency"`
}

type CacheConfig struct {
	UserTTL time.Duration `mapstructure:"user_ttl"`
}

type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// IsWebhook reports whether updates arrive through the HTTP webhook.
func (c BotConfig) IsWebhook() bool {
	return c.Mode == "webhook"
}

// StaffIDs lists every identity configured as superadmin or admin.
func (c AdminConfig) StaffIDs() []int64 {
	ids := make([]int64, 0, len(c.AdminIDs)+1)
	if c.SuperadminID != 0 {
		ids = append(ids, c.SuperadminID)
	}
	for _, id := range c.AdminIDs {
		if id != 0 && id != c.SuperadminID {
			ids = append(ids, id)
		}
	}
	return ids
}
