package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "LOG_LEVEL", "STORAGE_DRIVER", "MONGO_URI", "POSTGRES_DSN",
		"KAFKA_BROKERS", "RETRY_BACKOFF", "PENDING_BOOKING_TTL", "EXPIRY_INTERVAL", "REDIS_DB", "CURRENCY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "100-M", cfg.RateLimit)
	assert.Equal(t, 24*time.Hour, cfg.PendingBookingTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadReadsEnvFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9090\nKAFKA_BROKERS=a:9092, b:9092\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	os.Unsetenv("HTTP_ADDR")
	os.Unsetenv("KAFKA_BROKERS")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"mongo without uri", map[string]string{"STORAGE_DRIVER": "mongo"}},
		{"postgres without dsn", map[string]string{"STORAGE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"bad duration", map[string]string{"PENDING_BOOKING_TTL": "soon"}},
		{"bad backoff", map[string]string{"RETRY_BACKOFF": "1s,later"}},
		{"bad level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"bad redis db", map[string]string{"REDIS_DB": "one"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadAcceptsDriverWithURI(t *testing.T) {
	isolate(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/stayride")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
}

func TestFallbackIsValid(t *testing.T) {
	cfg := Fallback()
	require.NoError(t, cfg.validate())
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
}
