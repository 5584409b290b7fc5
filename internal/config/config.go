package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	AppEnv                string
	DatabaseURL           string
	RunMigrations         bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ExchangeRateURL       string
	ExchangeRateTTL       time.Duration
	ExchangeHTTPTimeout   time.Duration
	CommitTimeout         time.Duration
	DraftIdleTTL          time.Duration
	ReportTimezone        string
	AuthSecret            string
	AccessTokenTTLMinutes int
	SeedAdminPassword     string
}

// Load reads configuration from the process environment. A .env file in the
// working directory is applied first when present; it never overrides
// variables that are already set.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		AppEnv:                getEnv("APP_ENV", "production"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RunMigrations:         getBool("RUN_MIGRATIONS", true),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getInt("REDIS_DB", 0, 0),
		ExchangeRateURL:       getEnv("EXCHANGE_RATE_URL", "https://api.frankfurter.app/latest"),
		ExchangeRateTTL:       time.Duration(getInt("EXCHANGE_RATE_TTL_MINUTES", 60, 1)) * time.Minute,
		ExchangeHTTPTimeout:   time.Duration(getInt("EXCHANGE_HTTP_TIMEOUT_SECONDS", 5, 1)) * time.Second,
		CommitTimeout:         time.Duration(getInt("COMMIT_TIMEOUT_SECONDS", 15, 1)) * time.Second,
		DraftIdleTTL:          time.Duration(getInt("DRAFT_IDLE_TTL_MINUTES", 120, 1)) * time.Minute,
		ReportTimezone:        getEnv("REPORT_TIMEZONE", "Europe/Istanbul"),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: getInt("ACCESS_TOKEN_TTL_MINUTES", 480, 1),
		SeedAdminPassword:     os.Getenv("SEED_ADMIN_PASSWORD"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Development() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// Location resolves ReportTimezone, falling back to UTC when the zone is
// unknown to the host.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int, min int) int {
	val, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || val < min {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return val
}
