package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(1000), cfg.SignupBonus)
	assert.Equal(t, 2*time.Minute, cfg.PendingTimeout)
	assert.Equal(t, 12*time.Hour, cfg.ActiveTimeout)
	assert.Equal(t, 12*time.Hour, cfg.EndedTimeout)
	assert.Equal(t, 1200, cfg.DefaultElo)
	assert.Equal(t, int64(20), cfg.FlaggedLimit)
	assert.Equal(t, int64(100), cfg.SampleSize)
	assert.False(t, cfg.CleanNames)
	assert.Empty(t, cfg.ArchiveQueue)
	assert.Equal(t, 20, cfg.HistorianBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlush)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PENDING_TIMEOUT", "30")
	t.Setenv("SIGNUP_BONUS", "-5")
	t.Setenv("FLAGGED_LIMIT", "not-a-number")
	t.Setenv("CLEAN_NAMES", "1")
	t.Setenv("BANNED_WORDS", " foo, ,bar ")
	t.Setenv("MATCH_SAMPLE_SIZE", "0")
	t.Setenv("HISTORIAN_FLUSH_MS", "250")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.PendingTimeout)
	assert.Equal(t, int64(0), cfg.SignupBonus)
	assert.Equal(t, int64(20), cfg.FlaggedLimit)
	assert.True(t, cfg.CleanNames)
	assert.Equal(t, []string{"foo", "bar"}, cfg.BannedWords)
	assert.Equal(t, int64(1), cfg.SampleSize)
	assert.Equal(t, 250*time.Millisecond, cfg.HistorianFlush)
}

func TestTokenExpireTime(t *testing.T) {
	assert.Equal(t, time.Duration(0), Load().TokenTTL)

	t.Setenv("TOKEN_EXPIRE_TIME", "72h")
	assert.Equal(t, 72*time.Hour, Load().TokenTTL)

	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	assert.Equal(t, time.Duration(0), Load().TokenTTL)

	t.Setenv("TOKEN_EXPIRE_TIME", "soon")
	assert.Equal(t, time.Duration(0), Load().TokenTTL)
}
