package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50, cfg.HistorySize)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Zero(t, cfg.RateLimit.RPS)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Archive.Retention)
	assert.Equal(t, 4, cfg.Archive.Workers)
	assert.Equal(t, 1000, cfg.Archive.QueueSize)
	assert.Empty(t, cfg.DB.DBSource)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLifetime)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("HISTORY_SIZE", "10")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ARCHIVE_RETENTION_HOURS", "2")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("DB_SOURCE", "postgres://localhost/mcl")
	t.Setenv("MAX_CONN_IDLE_TIME", "60")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 10, cfg.HistorySize)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 2*time.Hour, cfg.Archive.Retention)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "postgres://localhost/mcl", cfg.DB.DBSource)
	assert.Equal(t, time.Minute, cfg.DB.MaxConnIdleTime)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("HISTORY_SIZE", "many")
	t.Setenv("REDIS_ENABLED", "maybe")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 50, cfg.HistorySize)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestGetEnvAsDuration_Seconds(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "15")
	assert.Equal(t, 15*time.Second, LoadConfig().ShutdownTimeout)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero history", func(c *Config) { c.HistorySize = 0 }},
		{"empty port", func(c *Config) { c.ServerPort = "" }},
		{"burst with limit", func(c *Config) { c.RateLimit.RPS = 5; c.RateLimit.Burst = 0 }},
		{"archive workers", func(c *Config) { c.Redis.Enabled = true; c.Archive.Workers = 0 }},
		{"archive queue", func(c *Config) { c.Redis.Enabled = true; c.Archive.QueueSize = -1 }},
		{"db pool", func(c *Config) {
			c.DB.DBSource = "postgres://x"
			c.DB.MinDBConnections = 20
			c.DB.MaxDBConnections = 5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_ValidateIgnoresDisabledParts(t *testing.T) {
	cfg := LoadConfig()
	cfg.Archive.Workers = 0
	cfg.DB.MinDBConnections = 100

	assert.NoError(t, cfg.Validate())
}
