package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
database:
  host: "db.internal"
  port: 5433
  user: "taxi"
  password: 'secret'
  database: taxi_dispatch

redis:
  host: cache.internal
  port: 6380
  password: ""
  db: 2

rabbitmq:
  host: mq.internal
  port: 5673
  user: guest
  password: guest

websocket:
  port: 8081

services:
  dispatch_service: 3100
  stream_service: 3101

jwt:
  secret_key: "super-secret"

tracking:
  freshness_window_seconds: 45

video:
  frame_ttl_seconds: 120
  max_frame_bytes: 1048576
`

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "taxi_dispatch", cfg.Database.Name)

	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, 2, cfg.Redis.DB)

	assert.Equal(t, 3100, cfg.Services.DispatchServicePort)
	assert.Equal(t, 3101, cfg.Services.StreamServicePort)
	assert.Equal(t, "super-secret", cfg.JWT.SecretKey)

	assert.Equal(t, 45*time.Second, cfg.FreshnessWindow())
	assert.Equal(t, 2*time.Minute, cfg.FrameTTL())
	assert.Equal(t, 1<<20, cfg.Video.MaxFrameBytes)
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
database:
  user: taxi
  password: secret
  database: taxi_dispatch

rabbitmq:
  user: guest
  password: guest
`
	cfg, err := LoadFromFile(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 3000, cfg.Services.DispatchServicePort)
	assert.Equal(t, 3001, cfg.Services.StreamServicePort)
	assert.NotEmpty(t, cfg.JWT.SecretKey) // generated when absent
	assert.Equal(t, 60*time.Second, cfg.FreshnessWindow())
	assert.Equal(t, 5*time.Minute, cfg.FrameTTL())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "observability:\n  enabled: true\n"))
	assert.Error(t, err)

	_, err = LoadFromFile(writeConfig(t, "redis:\n  hostname: nope\n"))
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateSection(t *testing.T) {
	dup := `
redis:
  port: 6379
redis:
  port: 6380
`
	_, err := LoadFromFile(writeConfig(t, dup))
	assert.Error(t, err)
}

func TestValidateRanges(t *testing.T) {
	bad := `
database:
  user: taxi
  password: secret
  database: taxi_dispatch
  port: 70000

rabbitmq:
  user: guest
  password: guest
`
	_, err := LoadFromFile(writeConfig(t, bad))
	assert.ErrorContains(t, err, "database.port")
}

func TestMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
