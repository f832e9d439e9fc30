package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		Port string
	}
	Postgres struct {
		Host           string
		Port           string
		User           string
		Password       string
		DBName         string
		SSLMode        string
		MigrationsPath string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Email struct {
		APIURL string
		APIKey string
		From   string
	}
	SMS struct {
		APIURL string
		APIKey string
		From   string
	}
	Notify struct {
		// Comma-separated list of addresses blind-copied on every order email.
		BCC []string
		// Base URL used to build default tracking links when the courier
		// did not supply one.
		BaseURL     string
		OrderPrefix string
	}
}

func NewConfig() (*Config, error) {
	// Missing .env is fine in production, where everything comes from the
	// real environment.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.Port = getEnv("APP_PORT", "8080")

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	if cfg.Postgres.Host == "" {
		return nil, fmt.Errorf("config: DB_HOST is required")
	}
	cfg.Postgres.Port = getEnv("DB_PORT", "5432")
	cfg.Postgres.User = os.Getenv("DB_USER")
	if cfg.Postgres.User == "" {
		return nil, fmt.Errorf("config: DB_USER is required")
	}
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	if cfg.Postgres.DBName == "" {
		return nil, fmt.Errorf("config: DB_NAME is required")
	}
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	cfg.Redis.DB = redisDB

	cfg.Email.APIURL = os.Getenv("EMAIL_API_URL")
	cfg.Email.APIKey = os.Getenv("EMAIL_API_KEY")
	cfg.Email.From = getEnv("EMAIL_FROM", "orders@clovelane.com")

	cfg.SMS.APIURL = os.Getenv("SMS_API_URL")
	cfg.SMS.APIKey = os.Getenv("SMS_API_KEY")
	cfg.SMS.From = os.Getenv("SMS_FROM")

	cfg.Notify.BCC = splitList(os.Getenv("ORDER_EMAIL_BCC"))
	cfg.Notify.BaseURL = getEnv("BASE_URL", "https://clovelane.com")
	cfg.Notify.OrderPrefix = getEnv("ORDER_NUMBER_PREFIX", "CL")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
