package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"margin/internal/erp"
	"margin/internal/notify"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseDSN string
	JWTSecret   []byte
	CORSOrigins []string

	ERPBaseURL  string
	ERPWebURL   string
	HTTPTimeout time.Duration

	SMTP notify.SMTPConfig

	// MarginAdminsURL wins over MarginAdminEmails when both are set.
	MarginAdminsURL   string
	MarginAdminEmails string
}

// Load reads configs/.env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseDSN: databaseDSN(),
		JWTSecret:   []byte(secret),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		ERPBaseURL:  getEnv("IAPP_BASE_URL", "https://api.iniciativaaplicativos.com.br"),
		ERPWebURL:   getEnv("IAPP_WEB_URL", erp.DefaultWebURL),
		HTTPTimeout: timeout,
		SMTP: notify.SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("MAIL_FROM", "margin@localhost"),
		},
		MarginAdminsURL:   os.Getenv("MARGIN_ADMINS_URL"),
		MarginAdminEmails: os.Getenv("MARGIN_ADMIN_EMAILS"),
	}, nil
}

// databaseDSN prefers DATABASE_DSN and otherwise assembles one from DB_*.
func databaseDSN() string {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return dsn
	}
	return "postgres://" + getEnv("DB_USER", "postgres") + ":" + getEnv("DB_PASSWORD", "postgres") +
		"@" + getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432") +
		"/" + getEnv("DB_NAME", "postgres") + "?sslmode=" + getEnv("DB_SSLMODE", "disable")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
