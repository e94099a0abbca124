package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Loads the repository's shipped config.yml end to end: file read, key
// binding, env overlay, validation. Every underscored key must land in its
// struct field; a key that silently fails to bind leaves a zero value that
// either trips validation or, worse, ships a dangerous default (a zero
// retention window would prune the whole sent queue).
func TestLoadConfigBindsShippedFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "../config.yml")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 1048576, cfg.Server.MaxHeaderBytes)

	assert.Equal(t, "https://test.api.amadeus.com", cfg.Amadeus.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Amadeus.Timeout)

	assert.Equal(t, "ATL", cfg.Pipeline.Origin)
	assert.Equal(t, 30, cfg.Pipeline.DepartureOffsetDays)
	assert.Equal(t, time.Second, cfg.Pipeline.FetchInterval)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.RunTimeout)

	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.NotEmpty(t, cfg.SMTP.TrackingBaseURL)
	assert.NotEmpty(t, cfg.SMTP.DashboardURL)

	assert.Equal(t, 25, cfg.Queue.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Queue.PollInterval)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)

	assert.Equal(t, 24*time.Hour, cfg.Cleanup.Interval)
	assert.Equal(t, 30, cfg.Cleanup.RetentionDays)

	assert.True(t, cfg.Scheduler.Enabled)
	assert.NotEmpty(t, cfg.Scheduler.CronSpec)

	assert.Equal(t, 20.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigSecretsOverlayWins(t *testing.T) {
	t.Setenv("CONFIG_FILE", "../config.yml")
	t.Setenv("AMADEUS_CLIENT_ID", "env-id")
	t.Setenv("AMADEUS_CLIENT_SECRET", "env-secret")
	t.Setenv("DB_PASSWORD", "env-db-pass")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Amadeus.ClientID)
	assert.Equal(t, "env-secret", cfg.Amadeus.ClientSecret)
	assert.Equal(t, "env-db-pass", cfg.Database.Password)
}
