// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable of the matchmaking service. It is read once at startup;
// all server processes sharing a Redis instance are expected to run with the same values.
type Config struct {
	Port string

	// Redis connection. RedisURL wins over RedisAddr/RedisDB when set.
	RedisAddr string
	RedisDB   int
	RedisURL  string

	// Secret is the shared passphrase every process derives its token keys from.
	Secret string
	// TokenTTL bounds session token lifetime. Zero issues tokens without expiry.
	TokenTTL time.Duration

	SignupBonus int64

	PendingTimeout time.Duration
	ActiveTimeout  time.Duration
	EndedTimeout   time.Duration

	DefaultElo   int
	EloK         float64
	FlaggedLimit int64
	SampleSize   int64

	MinNameLength int
	MaxNameLength int
	CleanNames    bool
	BannedWords   []string

	ProductsKey      string
	ReceiptVerifyURL string

	// ArchiveQueue is the Redis list ended matches are pushed to. Empty disables archiving.
	ArchiveQueue string

	HistorianBatchSize int
	HistorianFlush     time.Duration

	JanitorInterval  time.Duration
	MetadataInterval time.Duration

	LogLevel string
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisURL:           os.Getenv("REDIS_URL"),
		Secret:             getEnv("SECRET", "foobar"),
		TokenTTL:           getEnvDuration("TOKEN_EXPIRE_TIME", 0),
		SignupBonus:        int64(nonNegative(getEnvInt("SIGNUP_BONUS", 1000))),
		PendingTimeout:     getEnvSeconds("PENDING_TIMEOUT", 2*time.Minute),
		ActiveTimeout:      getEnvSeconds("ACTIVE_TIMEOUT", 12*time.Hour),
		EndedTimeout:       getEnvSeconds("ENDED_TIMEOUT", 12*time.Hour),
		DefaultElo:         nonNegative(getEnvInt("DEFAULT_ELO", 1200)),
		EloK:               float64(nonNegative(getEnvInt("ELO_K", 32))),
		FlaggedLimit:       int64(nonNegative(getEnvInt("FLAGGED_LIMIT", 20))),
		SampleSize:         int64(max(1, getEnvInt("MATCH_SAMPLE_SIZE", 100))),
		MinNameLength:      nonNegative(getEnvInt("MIN_NAME", 3)),
		MaxNameLength:      nonNegative(getEnvInt("MAX_NAME", 32)),
		CleanNames:         getEnvInt("CLEAN_NAMES", 0) == 1,
		BannedWords:        splitList(getEnv("BANNED_WORDS", "admin,moderator,official")),
		ProductsKey:        getEnv("REDIS_PRODUCTS_KEY", "products"),
		ReceiptVerifyURL:   os.Getenv("RECEIPT_VERIFY_URL"),
		ArchiveQueue:       os.Getenv("ARCHIVE_QUEUE"),
		HistorianBatchSize: max(1, getEnvInt("HISTORIAN_BATCH_SIZE", 20)),
		HistorianFlush:     time.Duration(max(1, getEnvInt("HISTORIAN_FLUSH_MS", 500))) * time.Millisecond,
		JanitorInterval:    getEnvSeconds("JANITOR_INTERVAL", time.Minute),
		MetadataInterval:   getEnvSeconds("METADATA_INTERVAL", 15*time.Second),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvSeconds reads a whole number of seconds. Negative values clamp to zero.
func getEnvSeconds(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return time.Duration(nonNegative(v)) * time.Second
}

// getEnvDuration parses a Go duration string; "never" and "0" mean no limit.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	switch s {
	case "":
		return def
	case "never", "0":
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
