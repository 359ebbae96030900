// Package retry implements a generic retry-with-backoff executor,
// optionally delegating each attempt through a circuit breaker.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/circuitbreaker"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
)

// Config describes retry behavior. It is pure configuration and carries
// no mutable state; the zero value is not usable, start from
// DefaultConfig.
type Config struct {
	// MaxAttempts is the number of retries after the first try, so a
	// value of 3 yields up to 4 invocations in total.
	MaxAttempts int

	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64

	// UseJitter adds a uniform random amount in [0, 0.25*delay] on top
	// of the computed delay. Jitter only ever increases the delay.
	UseJitter bool

	// ShouldRetry decides whether an error is worth another attempt.
	// Nil means DefaultShouldRetry.
	ShouldRetry func(error) bool

	// OnRetry is invoked before each sleep with the upcoming attempt
	// number (1-based) and the error that caused it.
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns the standard retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		UseJitter:         true,
		ShouldRetry:       DefaultShouldRetry,
	}
}

// DefaultShouldRetry retries errors marked recoverable that are not
// validation errors, and otherwise falls back to transient network
// pattern matching.
func DefaultShouldRetry(err error) bool {
	if errs.IsKind(err, errs.KindValidation) {
		return false
	}
	return errs.IsRecoverable(err)
}

// Delay computes the backoff before retrying after the given attempt
// (0-based): min(initial * multiplier^attempt, max), plus jitter when
// enabled.
func Delay(cfg Config, attempt int) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt))
	if max := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && d > max {
		d = max
	}
	if cfg.UseJitter {
		d += rand.Float64() * 0.25 * d
	}
	return time.Duration(d)
}

// Execute runs fn with retry-with-backoff semantics
func Execute(ctx context.Context, cfg Config, fn func(context.Context) error) error {
	return ExecuteWithBreaker(ctx, cfg, nil, fn)
}

// ExecuteWithBreaker runs fn, delegating each individual attempt
// through the breaker when one is supplied. A breaker trip therefore
// short-circuits the remaining attempts without paying network latency;
// the circuit-open error is recoverable, so attempts keep counting
// down, each preceded by its backoff delay.
func ExecuteWithBreaker(ctx context.Context, cfg Config, breaker *circuitbreaker.Breaker, fn func(context.Context) error) error {
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		var err error
		if breaker != nil {
			err = breaker.Execute(ctx, fn)
		} else {
			err = fn(ctx)
		}
		if err == nil {
			return nil
		}
		lastErr = err

		// Final attempt or a non-retryable error: rethrow immediately,
		// no further delay.
		if attempt == cfg.MaxAttempts || !shouldRetry(err) {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Delay(cfg, attempt)):
		}
	}
	return lastErr
}
