package middleware

import (
	"context"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/circuitbreaker"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/retry"
)

// RetryConfig configures the retry middleware
type RetryConfig struct {
	Config

	// Retry is the executor configuration for eligible operations
	Retry retry.Config

	// ShouldRetry gates whether this operation is retry-eligible at
	// all; the executor's own predicate still decides per error. Nil
	// means every operation is eligible.
	ShouldRetry func(*Context) bool

	// Breaker, when set, wraps each individual attempt so a trip
	// short-circuits the remaining retries.
	Breaker *circuitbreaker.Breaker
}

// Retry wraps the remainder of the chain inside the retry executor and
// annotates the context with the current retry attempt.
type Retry struct {
	cfg RetryConfig
}

// NewRetry creates the retry middleware
func NewRetry(cfg RetryConfig) *Retry {
	return &Retry{cfg: cfg}
}

func (r *Retry) Name() string   { return "retry" }
func (r *Retry) Config() Config { return r.cfg.Config }

func (r *Retry) Execute(ctx context.Context, mctx *Context, next Next) error {
	if r.cfg.ShouldRetry != nil && !r.cfg.ShouldRetry(mctx) {
		return next(ctx)
	}

	cfg := r.cfg.Retry
	userOnRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error) {
		mctx.Metadata["retryAttempt"] = attempt
		if userOnRetry != nil {
			userOnRetry(attempt, err)
		}
	}

	return retry.ExecuteWithBreaker(ctx, cfg, r.cfg.Breaker, func(ctx context.Context) error {
		return next(ctx)
	})
}
