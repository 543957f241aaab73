package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabasePath:      "vtftk.db",
		HTTPAddr:          ":58371",
		QueueBufferSize:   100,
		OverlayBufferSize: 100,
		EmitTimeout:       5 * time.Second,
		RetentionSchedule: "0 3 * * *",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "vtftk.db" {
		t.Errorf("default database path = %q", cfg.DatabasePath)
	}
	if cfg.QueueBufferSize != 100 {
		t.Errorf("default queue buffer = %d", cfg.QueueBufferSize)
	}
	if cfg.ChatBreakerCooldown != 2*time.Minute {
		t.Errorf("default breaker cooldown = %v", cfg.ChatBreakerCooldown)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", ":memory:")
	t.Setenv("QUEUE_BUFFER_SIZE", "7")
	t.Setenv("ANALYTICS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != ":memory:" || cfg.QueueBufferSize != 7 || !cfg.AnalyticsEnabled {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "missing database path", mutate: func(c *Config) { c.DatabasePath = "" }, field: "DATABASE_PATH"},
		{name: "zero queue buffer", mutate: func(c *Config) { c.QueueBufferSize = 0 }, field: "QUEUE_BUFFER_SIZE"},
		{name: "zero overlay buffer", mutate: func(c *Config) { c.OverlayBufferSize = 0 }, field: "OVERLAY_BUFFER_SIZE"},
		{name: "zero emit timeout", mutate: func(c *Config) { c.EmitTimeout = 0 }, field: "EMIT_TIMEOUT"},
		{name: "negative breaker threshold", mutate: func(c *Config) { c.ChatBreakerThreshold = -1 }, field: "CHAT_BREAKER_THRESHOLD"},
		{name: "analytics without redis", mutate: func(c *Config) { c.AnalyticsEnabled = true }, field: "REDIS_ADDR"},
		{name: "bad retention schedule", mutate: func(c *Config) { c.RetentionSchedule = "nope" }, field: "RETENTION_SCHEDULE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not mention %s", err, tc.field)
			}
		})
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DatabasePath = ""
	cfg.QueueBufferSize = -1

	err := Validate(cfg)
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(errs), errs)
	}
}

func TestMaskedJSON_HidesToken(t *testing.T) {
	cfg := validConfig()
	cfg.TwitchAccessToken = "oauth:supersecret"

	data, err := cfg.MaskedJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "supersecret") {
		t.Error("access token leaked into masked output")
	}
	if !strings.Contains(string(data), "***") {
		t.Error("expected masked marker in output")
	}
}
