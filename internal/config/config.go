package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	SLA        SLAConfig
	Assignment AssignmentConfig
	Webhook    WebhookConfig
	LiveFeed   LiveFeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SLAConfig controls the policy table and the periodic scan.
type SLAConfig struct {
	PolicyFile        string
	RiskWindowMinutes int
	ScanSchedule      string
	ScanConcurrency   int
}

// AssignmentConfig holds scoring weights.
type AssignmentConfig struct {
	PerformanceWeight float64
	SpecialtyWeight   float64
}

// WebhookConfig controls outbound delivery.
type WebhookConfig struct {
	TimeoutSeconds    int
	DefaultRetryCount int
	UserAgent         string
}

// LiveFeedConfig selects the subscriber registry backend.
type LiveFeedConfig struct {
	Backend string
}

const (
	LiveFeedBackendMemory = "memory"
	LiveFeedBackendRedis  = "redis"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := strings.ToLower(getEnv("LIVEFEED_BACKEND", LiveFeedBackendMemory))
	if backend != LiveFeedBackendMemory && backend != LiveFeedBackendRedis {
		return nil, fmt.Errorf("invalid LIVEFEED_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sla-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			PolicyFile:        os.Getenv("SLA_POLICY_FILE"),
			RiskWindowMinutes: getEnvAsInt("SLA_RISK_WINDOW_MINUTES", 15),
			ScanSchedule:      getEnvRaw("SLA_SCAN_SCHEDULE", "@every 5m"),
			ScanConcurrency:   getEnvAsInt("SLA_SCAN_CONCURRENCY", 8),
		},
		Assignment: AssignmentConfig{
			PerformanceWeight: getEnvAsFloat("ASSIGN_PERFORMANCE_WEIGHT", 5),
			SpecialtyWeight:   getEnvAsFloat("ASSIGN_SPECIALTY_WEIGHT", 2),
		},
		Webhook: WebhookConfig{
			TimeoutSeconds:    getEnvAsInt("WEBHOOK_TIMEOUT_SECONDS", 10),
			DefaultRetryCount: getEnvAsInt("WEBHOOK_DEFAULT_RETRY_COUNT", 3),
			UserAgent:         getEnv("WEBHOOK_USER_AGENT", "SLA-Engine-Webhooks/1.0"),
		},
		LiveFeed: LiveFeedConfig{
			Backend: backend,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RiskWindow returns the approaching window.
func (s SLAConfig) RiskWindow() time.Duration {
	return time.Duration(s.RiskWindowMinutes) * time.Minute
}

// Timeout returns the per-attempt delivery timeout.
func (w WebhookConfig) Timeout() time.Duration {
	if w.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvRaw distinguishes an explicitly empty value from an unset one.
func getEnvRaw(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
