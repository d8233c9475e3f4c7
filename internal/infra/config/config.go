package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	LogLevel           string
	LogFile            string
	StorageDriver      string
	MongoURI           string
	MongoDB            string
	PostgresDSN        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	PendingBookingTTL  time.Duration
	ExpiryInterval     time.Duration
	RateLimit          string
	Currency           string
	ListingsFixtures   string
	VouchersFixtures   string
}

// Load reads an optional .env file (ENV_FILE, default ".env") and then parses
// configuration from the environment. Variables already set win over the file.
func Load() (Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:          os.Getenv("LOG_FILE"),
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "stayride"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		RateLimit:        getEnv("RATE_LIMIT", "100-M"),
		Currency:         strings.ToUpper(getEnv("CURRENCY", "EUR")),
		ListingsFixtures: os.Getenv("LISTINGS_FIXTURES"),
		VouchersFixtures: os.Getenv("VOUCHERS_FIXTURES"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB = redisDB

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"PENDING_BOOKING_TTL", 24 * time.Hour, &cfg.PendingBookingTTL},
		{"EXPIRY_INTERVAL", time.Minute, &cfg.ExpiryInterval},
	}
	for _, d := range durations {
		v, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dest = v
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORAGE_DRIVER=%s", StorageMongo)
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORAGE_DRIVER=%s", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("invalid CURRENCY %q", c.Currency)
	}
	if c.PendingBookingTTL <= 0 || c.ExpiryInterval <= 0 {
		return errors.New("PENDING_BOOKING_TTL and EXPIRY_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

// Fallback is the in-memory configuration used when the environment cannot be parsed.
func Fallback() Config {
	return Config{
		Env:                "dev",
		HTTPAddr:           ":8080",
		LogLevel:           "info",
		StorageDriver:      StorageMemory,
		MongoDB:            "stayride",
		IdempotencyTTL:     168 * time.Hour,
		OutboxPollInterval: 500 * time.Millisecond,
		RetryBackoff:       []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		PendingBookingTTL:  24 * time.Hour,
		ExpiryInterval:     time.Minute,
		RateLimit:          "100-M",
		Currency:           "EUR",
	}
}
