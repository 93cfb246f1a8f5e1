package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("REMINDER_MAX_RETRIES", "")
	t.Setenv("REMINDER_RETRY_DELAY", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ReminderMaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.ReminderMaxRetries)
	}
	if cfg.ReminderRetryDelay != 15*time.Minute {
		t.Fatalf("expected default retry delay 15m, got %s", cfg.ReminderRetryDelay)
	}
	if cfg.DispatchInterval != time.Minute {
		t.Fatalf("expected default dispatch interval 1m, got %s", cfg.DispatchInterval)
	}
	if !cfg.DispatchEnabled {
		t.Fatal("expected dispatch enabled by default")
	}
	if cfg.EmailProvider != "stub" {
		t.Fatalf("expected stub email provider by default, got %s", cfg.EmailProvider)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("DISPATCH_INTERVAL", "30s")
	t.Setenv("DISPATCH_BATCH_SIZE", "10")
	t.Setenv("REMINDER_MAX_RETRIES", "5")
	t.Setenv("REMINDER_RETRY_DELAY", "20m")
	t.Setenv("SEND_TIMEOUT", "3s")
	t.Setenv("EMAIL_PROVIDER", "SendGrid")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected database url override, got %s", cfg.DatabaseURL)
	}
	if cfg.DispatchInterval != 30*time.Second {
		t.Fatalf("expected dispatch interval 30s, got %s", cfg.DispatchInterval)
	}
	if cfg.DispatchBatchSize != 10 {
		t.Fatalf("expected batch size 10, got %d", cfg.DispatchBatchSize)
	}
	if cfg.ReminderMaxRetries != 5 {
		t.Fatalf("expected max retries 5, got %d", cfg.ReminderMaxRetries)
	}
	if cfg.ReminderRetryDelay != 20*time.Minute {
		t.Fatalf("expected retry delay 20m, got %s", cfg.ReminderRetryDelay)
	}
	if cfg.SendTimeout != 3*time.Second {
		t.Fatalf("expected send timeout 3s, got %s", cfg.SendTimeout)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected lowercased email provider, got %s", cfg.EmailProvider)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected parsed cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}
