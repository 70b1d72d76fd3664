package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Etsy.SyncMonths)
	assert.Equal(t, "https://api.etsy.com/v3", cfg.Etsy.APIBaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Session.TokenDuration)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
etsy:
  sync_months: 3
database:
  path: /tmp/test.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Etsy.SyncMonths)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)

	// untouched keys keep their defaults
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("J3D_PORT", "7001")
	t.Setenv("ETSY_CLIENT_ID", "env-client")
	t.Setenv("J3D_SESSION_SECRET", "env-secret")

	cfg := defaults()
	cfg.ApplyEnv()

	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "env-client", cfg.Etsy.ClientID)
	assert.Equal(t, "env-secret", cfg.Session.Secret)
}

func TestValidate(t *testing.T) {
	valid := defaults()
	valid.Session.Secret = "secret"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"missing db path", func(c *Config) { c.Database.Path = "" }},
		{"missing session secret", func(c *Config) { c.Session.Secret = "" }},
		{"zero token duration", func(c *Config) { c.Session.TokenDuration = 0 }},
		{"zero sync months", func(c *Config) { c.Etsy.SyncMonths = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.Session.Secret = "secret"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
