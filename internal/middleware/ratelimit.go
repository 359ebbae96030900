package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
)

// RateLimitConfig configures the fixed-window rate limit middleware
type RateLimitConfig struct {
	Config

	// Window is the fixed counting window
	Window time.Duration

	// Max is the number of requests allowed per key per window
	Max int

	// KeyFn derives the limiting key from the context. Nil keys all
	// requests by chain id.
	KeyFn func(*Context) string

	// SweepInterval controls how often expired windows are removed to
	// bound memory. Zero defaults to the window length.
	SweepInterval time.Duration
}

// RateLimit rejects requests exceeding a fixed-window counter before
// any downstream work runs. On success it attaches the remaining quota
// and the window reset time to the response metadata.
type RateLimit struct {
	cfg     RateLimitConfig
	windows *xsync.MapOf[string, *window]
	stop    chan struct{}
	once    sync.Once
}

type window struct {
	mu        sync.Mutex
	count     int
	resetTime time.Time
}

// NewRateLimit creates the rate limit middleware and starts its
// background sweep. Call Stop when the chain is torn down.
func NewRateLimit(cfg RateLimitConfig) *RateLimit {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Max <= 0 {
		cfg.Max = 60
	}
	if cfg.KeyFn == nil {
		cfg.KeyFn = func(mctx *Context) string { return mctx.ChainID }
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.Window
	}

	rl := &RateLimit{
		cfg:     cfg,
		windows: xsync.NewMapOf[string, *window](),
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimit) Name() string   { return "ratelimit" }
func (rl *RateLimit) Config() Config { return rl.cfg.Config }

// Execute enforces the limit, then records quota metadata after a
// successful downstream call.
func (rl *RateLimit) Execute(ctx context.Context, mctx *Context, next Next) error {
	key := rl.cfg.KeyFn(mctx)
	w, _ := rl.windows.LoadOrCompute(key, func() *window {
		return &window{resetTime: time.Now().Add(rl.cfg.Window)}
	})

	w.mu.Lock()
	now := time.Now()
	if now.After(w.resetTime) {
		w.count = 0
		w.resetTime = now.Add(rl.cfg.Window)
	}
	if w.count >= rl.cfg.Max {
		resetTime := w.resetTime
		w.mu.Unlock()
		return errs.RateLimitExceeded(key, resetTime)
	}
	w.count++
	remaining := rl.cfg.Max - w.count
	resetTime := w.resetTime
	w.mu.Unlock()

	if err := next(ctx); err != nil {
		return err
	}
	if mctx.Response != nil {
		if mctx.Response.Metadata == nil {
			mctx.Response.Metadata = make(map[string]any)
		}
		mctx.Response.Metadata["remaining"] = remaining
		mctx.Response.Metadata["resetTime"] = resetTime
	}
	return nil
}

// Stop terminates the background sweep
func (rl *RateLimit) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// sweep periodically drops windows whose reset time has passed
func (rl *RateLimit) sweep() {
	ticker := time.NewTicker(rl.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.windows.Range(func(key string, w *window) bool {
				w.mu.Lock()
				expired := now.After(w.resetTime)
				w.mu.Unlock()
				if expired {
					rl.windows.Delete(key)
				}
				return true
			})
		case <-rl.stop:
			return
		}
	}
}
