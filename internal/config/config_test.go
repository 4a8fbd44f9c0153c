package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "STORE_BACKEND", "SESSION_TTL", "RATE_LIMIT_PER_MIN", "STORAGE_KEY"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "file", cfg.StoreBackend)
	assert.Equal(t, "unity-student-cards", cfg.StorageKey)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Empty(t, cfg.Warnings)
	assert.False(t, cfg.Production())
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("APP_ENV", "prod")
	cfg := Load()
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Len(t, cfg.Warnings, 2)
	assert.True(t, cfg.Production())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("IDCARD_TEST_FROM_FILE=yes\nHTTP_PORT=9999\n"), 0o600))
	t.Setenv("HTTP_PORT", "7000")
	t.Setenv("IDCARD_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("IDCARD_TEST_FROM_FILE"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "yes", os.Getenv("IDCARD_TEST_FROM_FILE"))
	assert.Equal(t, "7000", Load().HTTPPort, "existing variables win")
}

func TestLoadEnvFileMissing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}
