package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, OverdraftPolicyClamp, cfg.OverdraftPolicy)
	assert.Equal(t, int64(0), cfg.DefaultBalance)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 200, cfg.ResetBatchSize)
	assert.True(t, cfg.VerifyIdentity)
	assert.Equal(t, "jwt", cfg.TransactionHashSecret)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadConfigLedgerOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("LEDGER_DEFAULT_BALANCE", "500")
	t.Setenv("LEDGER_OVERDRAFT_POLICY", "strict")
	t.Setenv("LEDGER_MAX_RETRIES", "5")
	t.Setenv("TRANSACTION_HASH_SECRET", "audit")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("REDIS_HOST", "localhost")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverSQLite, cfg.StorageDriver)
	assert.Equal(t, int64(500), cfg.DefaultBalance)
	assert.Equal(t, OverdraftPolicyStrict, cfg.OverdraftPolicy)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "audit", cfg.TransactionHashSecret)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.RedisFullAddr())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"Unknown storage driver", "STORAGE_DRIVER", "cassandra"},
		{"Unknown overdraft policy", "LEDGER_OVERDRAFT_POLICY", "borrow"},
		{"Negative default balance", "LEDGER_DEFAULT_BALANCE", "-1"},
		{"Zero reset batch", "LEDGER_RESET_BATCH_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
