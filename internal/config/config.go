// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Per-call timeouts
	ProbeTimeout time.Duration
	CallTimeout  time.Duration

	// Bounded parallelism for probing all chains at once
	MaxParallelProbes int

	// Interval of the background health probe loop, zero disables it
	ProbeInterval time.Duration

	// Retry settings
	RetryMaxAttempts   int
	RetryInitialDelay  time.Duration
	RetryMaxDelay      time.Duration
	RetryBackoffFactor float64
	RetryUseJitter     bool

	// Circuit breaker settings
	BreakerFailureThreshold int
	BreakerRecoveryTimeout  time.Duration
	BreakerTimeoutWindow    time.Duration

	// Fixed-window rate limit settings for the middleware pipeline
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Response cache settings
	CacheTTL         time.Duration
	CacheSkipOnError bool

	// Process-wide HTTP rate limiting
	ServerRateRPS   float64
	ServerRateBurst int

	// Health webhook export
	ExportEnabled  bool
	ExportInterval time.Duration
	ExportBatch    int
	WebhookURL     string
	WebhookAPIKey  string
}

// Load creates a new Config from environment variables
func Load() Config {
	return Config{
		Port:              GetEnvOrDefault("PORT", "8080"),
		OtelEndpoint:      GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ProbeTimeout:      GetEnvAsDuration("PROBE_TIMEOUT", 5*time.Second),
		CallTimeout:       GetEnvAsDuration("CALL_TIMEOUT", 10*time.Second),
		MaxParallelProbes: GetEnvAsInt("MAX_PARALLEL_PROBES", 8),
		ProbeInterval:     GetEnvAsDuration("PROBE_INTERVAL", 30*time.Second),

		RetryMaxAttempts:   GetEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay:  GetEnvAsDuration("RETRY_INITIAL_DELAY", 500*time.Millisecond),
		RetryMaxDelay:      GetEnvAsDuration("RETRY_MAX_DELAY", 10*time.Second),
		RetryBackoffFactor: GetEnvAsFloat("RETRY_BACKOFF_FACTOR", 2.0),
		RetryUseJitter:     GetEnvAsBool("RETRY_USE_JITTER", true),

		BreakerFailureThreshold: GetEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerRecoveryTimeout:  GetEnvAsDuration("BREAKER_RECOVERY_TIMEOUT", 30*time.Second),
		BreakerTimeoutWindow:    GetEnvAsDuration("BREAKER_TIMEOUT_WINDOW", 60*time.Second),

		RateLimitWindow: GetEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:    GetEnvAsInt("RATE_LIMIT_MAX", 120),

		CacheTTL:         GetEnvAsDuration("CACHE_TTL", 30*time.Second),
		CacheSkipOnError: GetEnvAsBool("CACHE_SKIP_ON_ERROR", true),

		ServerRateRPS:   GetEnvAsFloat("RATE_LIMIT_RPS", 10.0),
		ServerRateBurst: GetEnvAsInt("RATE_LIMIT_BURST", 20),

		ExportEnabled:  GetEnvAsBool("HEALTH_EXPORT_ENABLED", false),
		ExportInterval: GetEnvAsDuration("HEALTH_EXPORT_INTERVAL", time.Minute),
		ExportBatch:    GetEnvAsInt("HEALTH_EXPORT_BATCH_SIZE", 100),
		WebhookURL:     GetEnvOrDefault("WEBHOOK_URL", ""),
		WebhookAPIKey:  GetEnvOrDefault("WEBHOOK_API_KEY", ""),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
