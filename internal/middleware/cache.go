package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// CacheConfig configures the response cache middleware
type CacheConfig struct {
	Config

	// TTL is how long a stored response stays valid
	TTL time.Duration

	// KeyFn derives the cache key from the context. Nil keys by path.
	KeyFn func(*Context) string

	// SkipOnError skips storing when the downstream call failed
	SkipOnError bool

	// SweepInterval controls eviction of expired entries. Zero
	// defaults to the TTL.
	SweepInterval time.Duration
}

// Cache returns a stored response without calling downstream on a hit,
// and stores the response keyed by KeyFn on a miss.
type Cache struct {
	cfg     CacheConfig
	entries *xsync.MapOf[string, cacheEntry]
	stop    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	response Response
	expires  time.Time
}

// NewCache creates the cache middleware and starts its background
// sweep. Call Stop when the chain is torn down.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.KeyFn == nil {
		cfg.KeyFn = func(mctx *Context) string { return mctx.Path }
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.TTL
	}

	c := &Cache{
		cfg:     cfg,
		entries: xsync.NewMapOf[string, cacheEntry](),
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *Cache) Name() string   { return "cache" }
func (c *Cache) Config() Config { return c.cfg.Config }

// Execute serves hits without invoking next; on a miss the downstream
// response is stored unless SkipOnError applies.
func (c *Cache) Execute(ctx context.Context, mctx *Context, next Next) error {
	key := c.cfg.KeyFn(mctx)

	if entry, ok := c.entries.Load(key); ok && time.Now().Before(entry.expires) {
		resp := entry.response
		resp.Metadata = copyMetadata(entry.response.Metadata)
		resp.Metadata["cached"] = true
		mctx.Response = &resp
		return nil
	}

	err := next(ctx)
	if err != nil && c.cfg.SkipOnError {
		return err
	}
	if err == nil && mctx.Response != nil {
		stored := *mctx.Response
		stored.Metadata = copyMetadata(mctx.Response.Metadata)
		c.entries.Store(key, cacheEntry{
			response: stored,
			expires:  time.Now().Add(c.cfg.TTL),
		})
	}
	return err
}

// Invalidate drops one cache entry
func (c *Cache) Invalidate(key string) {
	c.entries.Delete(key)
}

// Stop terminates the background sweep
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.entries.Range(func(key string, entry cacheEntry) bool {
				if now.After(entry.expires) {
					c.entries.Delete(key)
				}
				return true
			})
		case <-c.stop:
			return
		}
	}
}

func copyMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	return out
}
