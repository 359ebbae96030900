// Package middleware provides an ordered interceptor pipeline that
// composes rate limiting, caching, logging and retry behavior around
// arbitrary operations. Each middleware wraps the remainder of the
// chain and may observe, short-circuit, or post-process the call.
package middleware

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config is the common configuration every middleware carries
type Config struct {
	// Enabled middlewares run; disabled ones are skipped in place
	Enabled bool

	// Order positions the middleware in the chain, ascending. Among
	// equal orders, insertion order is preserved.
	Order int
}

// Context carries one logical operation through the chain. It is
// created once per operation, never shared across concurrent
// operations, and discarded after completion.
type Context struct {
	RequestID string
	Path      string
	ChainID   string
	Timestamp time.Time
	Metadata  map[string]any

	// Response is set by the terminal handler or by a short-circuiting
	// middleware such as the cache
	Response *Response
}

// Response holds the outcome of a completed operation
type Response struct {
	Timestamp time.Time
	Duration  time.Duration
	Metadata  map[string]any
	Body      any
}

// NewContext creates a context for one logical operation
func NewContext(path, chainID string) *Context {
	return &Context{
		RequestID: uuid.NewString(),
		Path:      path,
		ChainID:   chainID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// Next invokes the remainder of the chain. Middlewares may call it
// zero times (short-circuit), once (normal), or several times (retry).
type Next func(ctx context.Context) error

// Middleware is one stage of the pipeline
type Middleware interface {
	// Name is the unique key used for removal
	Name() string

	// Config returns the stage's enabled flag and order
	Config() Config

	// Execute runs the stage. Implementations decide whether and how
	// often to call next.
	Execute(ctx context.Context, mctx *Context, next Next) error
}

// Func adapts a plain function into a Middleware
type Func struct {
	MiddlewareName string
	Cfg            Config
	Fn             func(ctx context.Context, mctx *Context, next Next) error
}

func (f Func) Name() string   { return f.MiddlewareName }
func (f Func) Config() Config { return f.Cfg }
func (f Func) Execute(ctx context.Context, mctx *Context, next Next) error {
	return f.Fn(ctx, mctx, next)
}

// Chain is an ordered interceptor pipeline. Enabled middlewares execute
// in non-decreasing order; among equal orders registration order is
// preserved.
type Chain struct {
	mu      sync.RWMutex
	entries []chainEntry
	seq     int
}

type chainEntry struct {
	mw  Middleware
	seq int
}

// NewChain creates an empty chain
func NewChain() *Chain {
	return &Chain{}
}

// Add inserts a middleware and re-sorts the chain. The sort is stable
// with respect to insertion order.
func (c *Chain) Add(m Middleware) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, chainEntry{mw: m, seq: c.seq})
	c.seq++
	sort.SliceStable(c.entries, func(i, j int) bool {
		oi, oj := c.entries[i].mw.Config().Order, c.entries[j].mw.Config().Order
		if oi != oj {
			return oi < oj
		}
		return c.entries[i].seq < c.entries[j].seq
	})
	return c
}

// Remove deletes the middleware with the given name. Returns false if
// no such middleware is registered.
func (c *Chain) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.mw.Name() == name {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Names returns the names of all registered middlewares in execution order
func (c *Chain) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.mw.Name())
	}
	return names
}

// Execute runs the context through the chain and finally through the
// handler. Each enabled middleware fully enters and exits before the
// next starts; a middleware that skips next short-circuits the rest of
// the chain including the handler.
func (c *Chain) Execute(ctx context.Context, mctx *Context, handler Next) error {
	c.mu.RLock()
	stages := make([]Middleware, 0, len(c.entries))
	for _, e := range c.entries {
		if e.mw.Config().Enabled {
			stages = append(stages, e.mw)
		}
	}
	c.mu.RUnlock()

	// next is bound to a position so a middleware may invoke its
	// remainder more than once (the retry middleware does).
	var run func(ctx context.Context, idx int) error
	run = func(ctx context.Context, idx int) error {
		if idx >= len(stages) {
			return handler(ctx)
		}
		return stages[idx].Execute(ctx, mctx, func(ctx context.Context) error {
			return run(ctx, idx+1)
		})
	}
	return run(ctx, 0)
}
