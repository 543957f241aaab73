// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the vtftk backend.
type Config struct {
	// DatabasePath is the sqlite database file. ":memory:" runs fully
	// in memory.
	DatabasePath string `env:"DATABASE_PATH" envDefault:"vtftk.db" json:"database_path"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":58371" json:"http_addr"`
	RedisAddr string `env:"REDIS_ADDR" json:"redis_addr,omitempty"`

	// Twitch credentials for the platform client.
	TwitchClientID    string `env:"TWITCH_CLIENT_ID" json:"twitch_client_id"`
	TwitchAccessToken string `env:"TWITCH_ACCESS_TOKEN" json:"twitch_access_token"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" json:"metrics_enabled"`
	MetricsPath    string `env:"METRICS_PATH" envDefault:"/metrics" json:"metrics_path"`

	// Buffer sizes of the occurrence queue and overlay channel.
	QueueBufferSize   int `env:"QUEUE_BUFFER_SIZE" envDefault:"100" json:"queue_buffer_size"`
	OverlayBufferSize int `env:"OVERLAY_BUFFER_SIZE" envDefault:"100" json:"overlay_buffer_size"`

	EmitTimeout         time.Duration `env:"EMIT_TIMEOUT" envDefault:"5s" json:"emit_timeout"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s" json:"http_shutdown_timeout"`

	// ChatBreakerThreshold: 0 disables the chat circuit breaker.
	ChatBreakerThreshold int           `env:"CHAT_BREAKER_THRESHOLD" envDefault:"5" json:"chat_breaker_threshold"`
	ChatBreakerCooldown  time.Duration `env:"CHAT_BREAKER_COOLDOWN" envDefault:"2m" json:"chat_breaker_cooldown"`

	AnalyticsEnabled   bool          `env:"ANALYTICS_ENABLED" json:"analytics_enabled"`
	AnalyticsWindow    time.Duration `env:"ANALYTICS_WINDOW" envDefault:"1m" json:"analytics_window"`
	AnalyticsRetention time.Duration `env:"ANALYTICS_RETENTION" envDefault:"168h" json:"analytics_retention"`

	// RetentionSchedule is a cron expression (minute hour dom month dow).
	RetentionSchedule    string        `env:"RETENTION_SCHEDULE" envDefault:"0 3 * * *" json:"retention_schedule"`
	ExecutionRetention   time.Duration `env:"EXECUTION_RETENTION" envDefault:"720h" json:"execution_retention"`
	ChatHistoryRetention time.Duration `env:"CHAT_HISTORY_RETENTION" envDefault:"24h" json:"chat_history_retention"`
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	if cfg.DatabasePath == "" {
		errs = append(errs, ValidationError{Field: "DATABASE_PATH", Message: "required"})
	}
	if cfg.QueueBufferSize <= 0 {
		errs = append(errs, ValidationError{Field: "QUEUE_BUFFER_SIZE", Message: "must be positive"})
	}
	if cfg.OverlayBufferSize <= 0 {
		errs = append(errs, ValidationError{Field: "OVERLAY_BUFFER_SIZE", Message: "must be positive"})
	}
	if cfg.EmitTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "EMIT_TIMEOUT", Message: "must be positive"})
	}
	if cfg.ChatBreakerThreshold < 0 {
		errs = append(errs, ValidationError{Field: "CHAT_BREAKER_THRESHOLD", Message: "must not be negative"})
	}
	if cfg.AnalyticsEnabled && cfg.RedisAddr == "" {
		errs = append(errs, ValidationError{Field: "REDIS_ADDR", Message: "required when analytics is enabled"})
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.RetentionSchedule); err != nil {
		errs = append(errs, ValidationError{
			Field:   "RETENTION_SCHEDULE",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := c
	if masked.TwitchAccessToken != "" {
		masked.TwitchAccessToken = "***"
	}
	return json.MarshalIndent(masked, "", "  ")
}
