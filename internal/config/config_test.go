package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "HEALTH_PORT", "DATABASE_URL", "ELASTICSEARCH_URL",
		"ELASTICSEARCH_INDEX", "DEFAULT_OWNER", "TASKS_TIMEZONE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "4001", cfg.Server.HealthPort)
	assert.Equal(t, "http://localhost:9200", cfg.Search.URL)
	assert.Equal(t, "tasks", cfg.Search.IndexName)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "default-user", cfg.Tasks.DefaultOwner)
	assert.True(t, cfg.Server.AutoMigrate)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=tasknest sslmode=disable", cfg.DSN())
	assert.NoError(t, cfg.ValidateConfig())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/tasks?sslmode=disable")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "750ms")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("TASKS_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@db:5432/tasks?sslmode=disable", cfg.DSN())
	assert.Equal(t, 750*time.Millisecond, cfg.Search.Timeout)
	assert.False(t, cfg.Server.AutoMigrate)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = "http" },
			wantErr: "PORT must be a valid port",
		},
		{
			name:    "same api and health port",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "PORT and HEALTH_PORT must differ",
		},
		{
			name:    "relative search url",
			mutate:  func(c *Config) { c.Search.URL = "localhost:9200" },
			wantErr: "ELASTICSEARCH_URL",
		},
		{
			name:    "unknown refresh policy",
			mutate:  func(c *Config) { c.Search.Refresh = "sometimes" },
			wantErr: "ELASTICSEARCH_REFRESH",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Tasks.TimeZone = "Mars/Olympus" },
			wantErr: "TASKS_TIMEZONE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.ValidateConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
