package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SLADefaults(t *testing.T) {
	t.Setenv("SLA_DEFAULT_HOURS", "")
	t.Setenv("SLA_AT_RISK_RATIO", "")
	t.Setenv("SLA_RULE_MATCH_STRATEGY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4.0, cfg.SLA.DefaultHours)
	assert.Equal(t, 0.2, cfg.SLA.AtRiskRatio)
	assert.Equal(t, "first_match", cfg.SLA.MatchStrategy)
	assert.Equal(t, time.Minute, cfg.SLA.RuleCacheTTL())
	assert.Equal(t, "@every 5m", cfg.SLA.SweepSchedule)
}

func TestLoad_SLAOverrides(t *testing.T) {
	t.Setenv("SLA_DEFAULT_HOURS", "8.5")
	t.Setenv("SLA_AT_RISK_RATIO", "0.1")
	t.Setenv("SLA_RULE_MATCH_STRATEGY", "most_specific")
	t.Setenv("SLA_RULE_CACHE_TTL_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8.5, cfg.SLA.DefaultHours)
	assert.Equal(t, 0.1, cfg.SLA.AtRiskRatio)
	assert.Equal(t, "most_specific", cfg.SLA.MatchStrategy)
	assert.Zero(t, cfg.SLA.RuleCacheTTL())
}

func TestLoad_RejectsInvalidSLA(t *testing.T) {
	cases := map[string]string{
		"SLA_DEFAULT_HOURS":       "-1",
		"SLA_AT_RISK_RATIO":       "1.5",
		"SLA_RULE_MATCH_STRATEGY": "best_guess",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Setenv("SLA_DEFAULT_HOURS", "four")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SLA_DEFAULT_HOURS", "100000")
	_, err = Load()
	assert.Error(t, err)
}

func TestAppConfig_Addr(t *testing.T) {
	app := AppConfig{Host: "127.0.0.1", Port: "9000", RequestTimeoutSeconds: 5}
	assert.Equal(t, "127.0.0.1:9000", app.Addr())
	assert.Equal(t, 5*time.Second, app.RequestTimeout())
}

func TestLoad_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "maybe")
	t.Setenv("SLA_SWEEP_BATCH_SIZE", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
	assert.Contains(t, err.Error(), "POSTGRES_RUN_MIGRATIONS")
	assert.Contains(t, err.Error(), "SLA_SWEEP_BATCH_SIZE")
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "a-real-secret", cfg.Auth.JWTSecret)
}
