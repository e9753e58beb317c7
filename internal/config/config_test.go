package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 60, cfg.Game.TickRate)
	assert.Equal(t, 20, cfg.Game.SnapshotRate)
	assert.Equal(t, 5*time.Minute, cfg.Server.LeasePeriod)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadReadsFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
  lease_period: 90s
game:
  tick_rate: 30
  snapshot_rate: 10
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 90*time.Second, cfg.Server.LeasePeriod)
	assert.Equal(t, 30, cfg.Game.TickRate)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
`)
	t.Setenv("PUTT_SERVER_ADDRESS", ":7070")
	t.Setenv("PUTT_AUTH_JWT_SECRET", "sekrit")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "sekrit", cfg.Auth.JWTSecret)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	t.Run("zero tick rate", func(t *testing.T) {
		cfg := base()
		cfg.Game.TickRate = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("snapshot rate above tick rate", func(t *testing.T) {
		cfg := base()
		cfg.Game.SnapshotRate = cfg.Game.TickRate + 1
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := base()
		cfg.Logging.Level = "loud"
		assert.Error(t, cfg.Validate())
	})

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})
}
