package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENGPORTAL_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8084", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, "./uploads", cfg.Storage.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: memory
session:
  idle_timeout: 10m
storage:
  dir: /srv/uploads
`), 0o600))

	t.Setenv("ENGPORTAL_SESSION_IDLE_TIMEOUT", "45m")
	t.Setenv("ENGPORTAL_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("addr", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Set("addr", ":9000"))

	cfg, err := loadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "/srv/uploads", cfg.Storage.Dir)
	assert.Equal(t, 45*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsPlaceholderSecret(t *testing.T) {
	_, err := loadConfig("", nil)
	assert.ErrorContains(t, err, "session.secret")

	t.Setenv("ENGPORTAL_DATABASE_DRIVER", "memory")
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, devSecret, cfg.Session.Secret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() config {
		var c config
		c.Database.Driver = "memory"
		c.Session.Secret = "0123456789abcdef"
		c.Session.IdleTimeout = time.Minute
		return c
	}

	tests := []struct {
		name   string
		mutate func(*config)
		ok     bool
	}{
		{"valid", func(*config) {}, true},
		{"postgres", func(c *config) { c.Database.Driver = "postgres" }, true},
		{"unknown driver", func(c *config) { c.Database.Driver = "sqlite" }, false},
		{"short secret", func(c *config) { c.Session.Secret = "short" }, false},
		{"zero timeout", func(c *config) { c.Session.IdleTimeout = 0 }, false},
		{"placeholder secret with memory", func(c *config) { c.Session.Secret = devSecret }, true},
		{"placeholder secret with postgres", func(c *config) {
			c.Database.Driver = "postgres"
			c.Session.Secret = devSecret
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("warn", "console")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	_, err = newLogger("loud", "json")
	assert.Error(t, err)
}
