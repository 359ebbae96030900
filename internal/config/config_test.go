package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "hello")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_FLOAT", "2.5")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DUR", "45s")
	t.Setenv("TEST_BAD_INT", "not-a-number")

	assert.Equal(t, "hello", GetEnvOrDefault("TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("TEST_MISSING", "fallback"))

	assert.Equal(t, 42, GetEnvAsInt("TEST_INT", 7))
	assert.Equal(t, 7, GetEnvAsInt("TEST_MISSING", 7))
	assert.Equal(t, 7, GetEnvAsInt("TEST_BAD_INT", 7), "Unparseable values fall back to the default")

	assert.Equal(t, 2.5, GetEnvAsFloat("TEST_FLOAT", 1.0))
	assert.True(t, GetEnvAsBool("TEST_BOOL", false))
	assert.Equal(t, 45*time.Second, GetEnvAsDuration("TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, GetEnvAsDuration("TEST_MISSING", time.Minute))
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryInitialDelay)
	assert.Equal(t, 2.0, cfg.RetryBackoffFactor)
	assert.True(t, cfg.RetryUseJitter)
	assert.Equal(t, 5, cfg.BreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerRecoveryTimeout)
	assert.Equal(t, 60*time.Second, cfg.BreakerTimeoutWindow)
	assert.False(t, cfg.ExportEnabled, "Export is opt-in")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "2")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 2, cfg.BreakerFailureThreshold)
}
