// Package registry maintains the catalog of supported chains and their
// health records. The registry is constructed by the composition root
// and passed by reference; there is no process-wide shared instance.
package registry

import (
	"sync"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/types"
	"github.com/sirupsen/logrus"
)

// Registry is the catalog of chain descriptors. Descriptors are
// immutable once registered; each chain's HealthRecord is the only
// associated mutable state and is updated through UpdateHealth.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	logg    logrus.FieldLogger
}

type entry struct {
	desc   types.ChainDescriptor
	health types.HealthRecord
}

// New creates an empty registry
func New(logg logrus.FieldLogger) *Registry {
	if logg == nil {
		logg = logrus.StandardLogger()
	}
	return &Registry{
		entries: make(map[string]*entry),
		logg:    logg,
	}
}

// NewWithDefaults creates a registry seeded with the default chain set
func NewWithDefaults(logg logrus.FieldLogger) *Registry {
	r := New(logg)
	for _, desc := range DefaultDescriptors() {
		// Defaults are statically valid, Register cannot fail here
		_ = r.Register(desc)
	}
	return r
}

// Register adds a chain to the catalog. Re-registering an existing id
// replaces its descriptor and resets its health record to unknown.
// Validation is limited to the two registry preconditions: a non-empty
// id and a non-empty endpoint list.
func (r *Registry) Register(desc types.ChainDescriptor) error {
	if desc.ID == "" {
		return errs.Validation("chain id must not be empty")
	}
	if len(desc.Endpoints) == 0 {
		return errs.Validation("chain must have at least one RPC endpoint")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.ID]; !exists {
		r.order = append(r.order, desc.ID)
	}
	r.entries[desc.ID] = &entry{
		desc:   desc,
		health: types.HealthRecord{Status: types.HealthUnknown},
	}

	r.logg.WithFields(logrus.Fields{
		"chain":     desc.ID,
		"chain_id":  desc.ChainID,
		"endpoints": len(desc.Endpoints),
	}).Info("Chain registered")
	return nil
}

// Get returns the descriptor for a chain id
func (r *Registry) Get(id string) (types.ChainDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return types.ChainDescriptor{}, false
	}
	return e.desc, true
}

// List returns all descriptors in registration order
func (r *Registry) List() []types.ChainDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]types.ChainDescriptor, 0, len(r.order))
	for _, id := range r.order {
		if e, ok := r.entries[id]; ok {
			descs = append(descs, e.desc)
		}
	}
	return descs
}

// Remove deletes a chain and its health record. Returns false if the
// chain was not registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logg.WithField("chain", id).Info("Chain removed")
	return true
}

// Health returns a snapshot of the chain's health record
func (r *Registry) Health(id string) (types.HealthRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return types.HealthRecord{}, false
	}
	return e.health, true
}

// AllHealth returns health snapshots for every registered chain
func (r *Registry) AllHealth() map[string]types.HealthRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]types.HealthRecord, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.health
	}
	return out
}

// UpdateHealth applies fn to the chain's health record under the
// registry lock. The health monitor is the only caller. Returns the
// updated snapshot and whether the chain exists.
func (r *Registry) UpdateHealth(id string, fn func(*types.HealthRecord)) (types.HealthRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return types.HealthRecord{}, false
	}
	fn(&e.health)
	return e.health, true
}

// Len returns the number of registered chains
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
