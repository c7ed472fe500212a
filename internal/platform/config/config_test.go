package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ResultTTL)
	assert.Equal(t, 5, cfg.Cache.BreakerThreshold)
	assert.Equal(t, 10*time.Second, cfg.Cache.BreakerCooldown)
	assert.Equal(t, 120*time.Second, cfg.Backfill.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Tasks.TimeLimit)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.URL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_URL", "file:blurifier.db")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SWEEP_INTERVAL", "15s")
	t.Setenv("BACKFILL_ENABLED", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Second, cfg.Sweeper.Interval)
	assert.False(t, cfg.Backfill.Enabled)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad duration", "RESULT_CACHE_TTL", "soon", "RESULT_CACHE_TTL"},
		{"bad int", "SWEEP_BATCH_SIZE", "many", "SWEEP_BATCH_SIZE"},
		{"unknown driver", "DATABASE_DRIVER", "oracle", "unknown driver"},
		{"zero breaker threshold", "CACHE_BREAKER_THRESHOLD", "0", "CACHE_BREAKER_THRESHOLD"},
		{"zero attempts", "TASK_MAX_ATTEMPTS", "0", "TASK_MAX_ATTEMPTS"},
		{"fuzziness out of range", "SEARCH_FUZZINESS", "3", "SEARCH_FUZZINESS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
