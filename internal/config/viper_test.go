package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/aigo/internal/config"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
)

// isolate points HOME at an empty directory so a developer's ~/.aigo.yaml
// never leaks into the tests.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.LoadFrom(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, constants.CacheTTL, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.StaleWhileRevalidate)
	assert.Equal(t, constants.AAFetchTimeout, cfg.AA.Timeout)
	assert.Equal(t, "header:x-api-key", cfg.AA.Auth)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, config.BackendFile, cfg.Snapshot.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ConfigFile)
}

func TestEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("AIGO_CACHE_TTL", "5m")
	t.Setenv("AIGO_CACHE_STALE_WHILE_REVALIDATE", "false")
	t.Setenv("AIGO_DATABASE_DSN", "postgres://localhost/aigo")
	t.Setenv("AIGO_SNAPSHOT_BACKEND", "Redis")
	t.Setenv("AIGO_SNAPSHOT_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.LoadFrom(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.StaleWhileRevalidate)
	assert.Equal(t, "postgres://localhost/aigo", cfg.Database.DSN)
	assert.Equal(t, config.BackendRedis, cfg.Snapshot.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.SnapshotLocation())
}

func TestConfigFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "aigo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
aa:
  feed_path: /data/aa-models.json
  timeout: 3s
database:
  driver: sqlite
  dsn: file:aigo.db
snapshot:
  backend: badger
  path: /var/lib/aigo/badger
corrections:
  path: corrections.yaml
log_level: debug
`), 0o600))

	cfg, err := config.LoadFrom(config.New(), path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "/data/aa-models.json", cfg.AA.FeedPath)
	assert.Equal(t, 3*time.Second, cfg.AA.Timeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "corrections.yaml", cfg.Corrections.Path)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "badger:///var/lib/aigo/badger", cfg.SnapshotLocation())

	t.Run("environment wins over file", func(t *testing.T) {
		t.Setenv("AIGO_LOG_LEVEL", "warn")
		cfg, err := config.LoadFrom(config.New(), path)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)
	})
}

func TestMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := config.LoadFrom(config.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"AIGO_SNAPSHOT_BACKEND": "s3"}},
		{"redis without url", map[string]string{"AIGO_SNAPSHOT_BACKEND": "redis"}},
		{"zero ttl", map[string]string{"AIGO_CACHE_TTL": "0s"}},
		{"zero timeout", map[string]string{"AIGO_DATABASE_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadFrom(config.New(), "")
			assert.True(t, errors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestSnapshotDisabled(t *testing.T) {
	isolate(t)
	t.Setenv("AIGO_SNAPSHOT_BACKEND", "none")

	cfg, err := config.LoadFrom(config.New(), "")
	require.NoError(t, err)
	assert.Empty(t, cfg.SnapshotLocation())
}
