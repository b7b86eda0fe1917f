package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/helpdesk-service/internal/sla"
)

const devJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
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
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// SLAConfig tunes the SLA evaluator and the breach monitor.
type SLAConfig struct {
	DefaultHours        float64
	AtRiskRatio         float64
	MatchStrategy       string
	RuleCacheTTLSeconds int
	SweepSchedule       string
	SweepBatchSize      int
	AlertDedupeHours    int
}

// Load reads configuration from the environment, after merging a .env file
// when one exists. Malformed numbers and booleans are reported together
// instead of silently replaced by defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		App: AppConfig{
			Name:                  env.get("APP_NAME", "helpdesk-service"),
			Env:                   env.get("APP_ENV", "development"),
			Host:                  env.get("APP_HOST", "0.0.0.0"),
			Port:                  env.get("APP_PORT", "8080"),
			Version:               env.get("APP_VERSION", "dev"),
			RequestTimeoutSeconds: env.getInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            env.get("POSTGRES_DSN", ""),
			MaxConns:       int32(env.getInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(env.getInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  env.getBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(env.getInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(env.getInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     env.get("REDIS_ADDR", "127.0.0.1:6379"),
			Password: env.get("REDIS_PASSWORD", ""),
			DB:       env.getInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level: env.get("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             env.get("AUTH_JWT_SECRET", devJWTSecret),
			AccessTokenTTLMinutes: env.getInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            env.getInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  env.get("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: env.get("NOTIFY_WEBHOOK_URL", ""),
		},
		SLA: SLAConfig{
			DefaultHours:        env.getFloat("SLA_DEFAULT_HOURS", 4),
			AtRiskRatio:         env.getFloat("SLA_AT_RISK_RATIO", 0.2),
			MatchStrategy:       env.get("SLA_RULE_MATCH_STRATEGY", "first_match"),
			RuleCacheTTLSeconds: env.getInt("SLA_RULE_CACHE_TTL_SECONDS", 60),
			SweepSchedule:       env.get("SLA_SWEEP_SCHEDULE", "@every 5m"),
			SweepBatchSize:      env.getInt("SLA_SWEEP_BATCH_SIZE", 500),
			AlertDedupeHours:    env.getInt("SLA_ALERT_DEDUPE_HOURS", 24),
		},
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	if cfg.App.Env == "production" && cfg.Auth.JWTSecret == devJWTSecret {
		return nil, errors.New("AUTH_JWT_SECRET must be set in production")
	}
	if err := cfg.SLA.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects SLA settings the evaluator cannot work with.
func (s SLAConfig) Validate() error {
	if !sla.ValidHours(s.DefaultHours) {
		return fmt.Errorf("SLA_DEFAULT_HOURS must be in (0, %g], got %v", sla.MaxHours, s.DefaultHours)
	}
	if s.AtRiskRatio <= 0 || s.AtRiskRatio >= 1 {
		return fmt.Errorf("SLA_AT_RISK_RATIO must be between 0 and 1, got %v", s.AtRiskRatio)
	}
	switch s.MatchStrategy {
	case "first_match", "most_specific":
	default:
		return fmt.Errorf("SLA_RULE_MATCH_STRATEGY must be first_match or most_specific, got %q", s.MatchStrategy)
	}
	return nil
}

// RuleCacheTTL returns how long active rules may be served from Redis.
func (s SLAConfig) RuleCacheTTL() time.Duration {
	if s.RuleCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.RuleCacheTTLSeconds) * time.Second
}

// AlertDedupeWindow returns how long a breach alert suppresses repeats.
func (s SLAConfig) AlertDedupeWindow() time.Duration {
	if s.AlertDedupeHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.AlertDedupeHours) * time.Hour
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
