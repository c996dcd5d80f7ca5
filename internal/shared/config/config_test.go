package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GATEWAY_URL", "")
	cfg, err := LoadDir(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.Gateway.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Sync.TimeSync())
	assert.Equal(t, 30*time.Second, cfg.Sync.Stats())
	assert.Equal(t, 5*time.Second, cfg.Sync.AvailableRides())
}

func TestLoadDirFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
gateway:
  base_url: http://gw.internal/api
  timeout_seconds: 3
storage:
  in_memory: true
sync:
  stats_seconds: 10
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client.yaml"), []byte(yml), 0o600))
	t.Setenv("SYNC_STATS_SECONDS", "12")

	cfg, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://gw.internal/api", cfg.Gateway.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout())
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, 12*time.Second, cfg.Sync.Stats())
	assert.Equal(t, 15*time.Second, cfg.Sync.Rides())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateRejectsNonPositiveInterval(t *testing.T) {
	cfg := Defaults()
	cfg.Sync.RidesSeconds = 0
	assert.ErrorContains(t, cfg.Validate(), "sync.rides_seconds")
}

func TestLoadDirBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client.yaml"), []byte("gateway: [oops"), 0o600))
	_, err := LoadDir(dir)
	assert.Error(t, err)
}
