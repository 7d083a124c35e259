package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", DriverMemory)
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"STORAGE_DRIVER=memory\nAPP_PORT=9090\nIDEMPOTENCY_ENABLED=true\nOUTBOX_POLL_INTERVAL=250ms\n",
	), 0o600))
	for _, k := range []string{"STORAGE_DRIVER", "APP_PORT", "IDEMPOTENCY_ENABLED", "OUTBOX_POLL_INTERVAL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort)
	assert.True(t, cfg.IdempotencyEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
}

func TestValidate(t *testing.T) {
	base := Config{StorageDriver: DriverPostgres, DatabaseURL: "postgres://x", DBMaxConns: 5, DBMinConns: 1, OutboxBatchSize: 10}
	require.NoError(t, base.Validate())

	noDSN := base
	noDSN.DatabaseURL = ""
	assert.ErrorContains(t, noDSN.Validate(), "DATABASE_URL")

	unknown := base
	unknown.StorageDriver = "sqlite"
	assert.ErrorContains(t, unknown.Validate(), "unknown STORAGE_DRIVER")

	conns := base
	conns.DBMinConns = 10
	assert.Error(t, conns.Validate())
}
