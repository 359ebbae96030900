package circuitbreaker

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Group manages one breaker per logical dependency, lazily created.
// Typically keyed by chain id.
type Group struct {
	mu        sync.RWMutex
	breakers  map[string]*Breaker
	configure func(*Breaker) *Breaker
	logg      logrus.FieldLogger
}

// NewGroup creates an empty breaker group. The optional configure
// function is applied to every breaker the group creates.
func NewGroup(logg logrus.FieldLogger, configure func(*Breaker) *Breaker) *Group {
	if logg == nil {
		logg = logrus.StandardLogger()
	}
	return &Group{
		breakers:  make(map[string]*Breaker),
		configure: configure,
		logg:      logg,
	}
}

// Get returns the breaker for a name, creating it if needed
func (g *Group) Get(name string) *Breaker {
	g.mu.RLock()
	b, ok := g.breakers[name]
	g.mu.RUnlock()
	if ok {
		return b
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.breakers[name]; ok {
		return b
	}

	b = New(name).WithLogger(g.logg)
	if g.configure != nil {
		b = g.configure(b)
	}
	g.breakers[name] = b
	return b
}

// AllStats returns snapshots for every breaker in the group
func (g *Group) AllStats() []Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := make([]Stats, 0, len(g.breakers))
	for _, b := range g.breakers {
		stats = append(stats, b.Snapshot())
	}
	return stats
}

// ResetAll forces every breaker in the group back to closed
func (g *Group) ResetAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, b := range g.breakers {
		b.Reset()
	}
}
