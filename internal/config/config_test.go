package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DATABASE_DSN", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.HTTPTimeout != 10*time.Second || cfg.SMTP.Port != "587" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.DatabaseDSN != "postgres://postgres:postgres@db:5432/postgres?sslmode=disable" {
		t.Fatalf("unexpected dsn %s", cfg.DatabaseDSN)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_DSN", "postgres://u:p@h/db")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , ,https://b.com")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseDSN != "postgres://u:p@h/db" || cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("overrides ignored %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://a.com" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestFromEnvRejectsBadTimeout(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_TIMEOUT", "soon")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for invalid HTTP_TIMEOUT")
	}
}
