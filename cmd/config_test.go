package cmd_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cargotrust/cmd"
	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := cmd.ConfigFromEnv(envOf(nil))

	require.NoError(t, err)
	assert.Equal(t, cmd.DefaultConfig(), cfg)
	assert.Equal(t, cmd.StoreBackendStructured, cfg.StoreBackend)
	assert.Equal(t, cmd.KVBackendMemory, cfg.KVBackend)
	assert.Equal(t, 10*time.Second, cfg.LedgerTimeout)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := cmd.ConfigFromEnv(envOf(map[string]string{
		"HTTP_PORT":             "9090",
		"STORE_BACKEND":         "flat",
		"KV_BACKEND":            "postgres",
		"KV_CAPACITY_BYTES":     "1024",
		"LEDGER_TIMEOUT":        "3s",
		"LEDGER_ARBITER":        "GARBITER",
		"BREAKER_MAX_FAILURES":  "2",
		"BREAKER_RESET_TIMEOUT": "1m",
		"KAFKA_HOST":            "kafka:9092",
		"DB_PASSWORD":           "",
	}))

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, cmd.StoreBackendFlat, cfg.StoreBackend)
	assert.Equal(t, cmd.KVBackendPostgres, cfg.KVBackend)
	assert.Equal(t, int64(1024), cfg.KVCapacityBytes)
	assert.Equal(t, 3*time.Second, cfg.LedgerTimeout)
	assert.Equal(t, "GARBITER", cfg.LedgerArbiter)
	assert.Equal(t, 2, cfg.BreakerMaxFailures)
	assert.Equal(t, time.Minute, cfg.BreakerResetTimeout)
	assert.Equal(t, "kafka:9092", cfg.KafkaHost)
	assert.Equal(t, "delivery.status_changed", cfg.KafkaDeliveryChangedTopic)
	assert.Empty(t, cfg.DBPassword)
}

func TestConfigFromEnv_ReportsEveryProblem(t *testing.T) {
	_, err := cmd.ConfigFromEnv(envOf(map[string]string{
		"STORE_BACKEND":        "paper",
		"KV_CAPACITY_BYTES":    "lots",
		"LEDGER_TIMEOUT":       "soon",
		"BREAKER_MAX_FAILURES": "0",
	}))

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	assert.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	for _, key := range []string{"STORE_BACKEND", "KV_CAPACITY_BYTES", "LEDGER_TIMEOUT", "BREAKER_MAX_FAILURES"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	t.Run("missing file keeps defaults", func(t *testing.T) {
		cfg, err := cmd.LoadConfig(filepath.Join(t.TempDir(), ".env"))
		require.NoError(t, err)
		assert.Equal(t, cmd.StoreBackendStructured, cfg.StoreBackend)
	})

	t.Run("file values are applied", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(file, []byte("CARGOTRUST_TEST_UNUSED=1\nKV_TABLE=from_file\n"), 0o600))
		t.Setenv("KV_TABLE", "")
		require.NoError(t, os.Unsetenv("KV_TABLE"))

		cfg, err := cmd.LoadConfig(file)

		require.NoError(t, err)
		assert.Equal(t, "from_file", cfg.KVTable)
	})
}
