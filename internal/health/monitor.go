// Package health probes chain endpoints for liveness, maintains health
// records, and selects the best endpoint for outbound calls.
package health

import (
	"context"
	"sort"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/sirupsen/logrus"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/registry"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/transport"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/types"
)

// Default monitor settings
const (
	DefaultProbeTimeout = 5 * time.Second
	DefaultMaxParallel  = 8
)

// Options configures a Monitor
type Options struct {
	// ProbeTimeout bounds each individual endpoint probe
	ProbeTimeout time.Duration

	// MaxParallel bounds ProbeAll fan-out
	MaxParallel int

	// OnHealthChange is invoked whenever a chain's health status
	// transitions, replacing an implicit event emitter.
	OnHealthChange func(chainID string, record types.HealthRecord)

	Logger logrus.FieldLogger
}

// Monitor probes chains and owns all HealthRecord mutations
type Monitor struct {
	registry  *registry.Registry
	transport transport.Transport

	probeTimeout   time.Duration
	pool           pond.Pool
	onHealthChange func(chainID string, record types.HealthRecord)
	logg           logrus.FieldLogger
}

// New creates a health monitor over the given registry and transport
func New(reg *registry.Registry, tr transport.Transport, opts Options) *Monitor {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Monitor{
		registry:       reg,
		transport:      tr,
		probeTimeout:   opts.ProbeTimeout,
		pool:           pond.NewPool(opts.MaxParallel),
		onHealthChange: opts.OnHealthChange,
		logg:           opts.Logger,
	}
}

// Stop drains the probe worker pool
func (m *Monitor) Stop() {
	m.pool.StopAndWait()
}

// Probe checks the chain's endpoints in ascending priority order under
// a per-call timeout. The first endpoint that answers wins: latency is
// recorded, the chain is marked healthy and the remaining endpoints are
// not tried. When every endpoint fails the chain is marked unhealthy
// but the returned record still carries the primary endpoint URL, so
// callers always have something to try rather than failing closed.
// The only error case is an unregistered chain id.
func (m *Monitor) Probe(ctx context.Context, chainID string) (types.HealthRecord, error) {
	desc, ok := m.registry.Get(chainID)
	if !ok {
		return types.HealthRecord{}, errs.ChainUnsupported(chainID)
	}

	var lastErr error
	for _, ep := range desc.OrderedEndpoints() {
		probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
		start := time.Now()
		info, err := m.transport.Probe(probeCtx, ep.URL)
		latency := time.Since(start)
		cancel()

		if err != nil {
			lastErr = err
			m.logg.WithFields(logrus.Fields{
				"chain":    chainID,
				"endpoint": ep.URL,
				"error":    err,
			}).Debug("Endpoint probe failed")
			continue
		}

		record := m.updateHealth(chainID, func(r *types.HealthRecord) {
			r.Status = types.HealthHealthy
			r.LastChecked = time.Now()
			r.ResponseTimeMs = latency.Milliseconds()
			r.SuccessCount++
			r.Endpoint = ep.URL
			r.BlockHeight = info.Height
			r.LastError = ""
		})
		return record, nil
	}

	record := m.updateHealth(chainID, func(r *types.HealthRecord) {
		r.Status = types.HealthUnhealthy
		r.LastChecked = time.Now()
		r.ErrorCount++
		r.Endpoint = desc.PrimaryEndpoint().URL
		if lastErr != nil {
			r.LastError = lastErr.Error()
		}
	})

	m.logg.WithFields(logrus.Fields{
		"chain":    chainID,
		"fallback": record.Endpoint,
	}).Warn("All endpoints failed probe, falling back to primary")
	return record, nil
}

// ProbeAll probes every registered chain concurrently on a bounded
// worker pool. One chain's failure never prevents another's probe or
// its inclusion in the result.
func (m *Monitor) ProbeAll(ctx context.Context) map[string]types.HealthRecord {
	descs := m.registry.List()

	type result struct {
		chainID string
		record  types.HealthRecord
	}
	resultCh := make(chan result, len(descs))

	group := m.pool.NewGroup()
	for _, desc := range descs {
		chainID := desc.ID
		group.Submit(func() {
			record, err := m.Probe(ctx, chainID)
			if err != nil {
				// The chain was removed between List and Probe
				m.logg.WithField("chain", chainID).Debug("Probe skipped, chain no longer registered")
				return
			}
			resultCh <- result{chainID: chainID, record: record}
		})
	}
	_ = group.Wait()
	close(resultCh)

	records := make(map[string]types.HealthRecord, len(descs))
	for res := range resultCh {
		records[res.chainID] = res.record
	}
	return records
}

// SelectionPreferences narrows endpoint selection
type SelectionPreferences struct {
	// PreferredChainID pins selection to one chain when set
	PreferredChainID string

	// AllowTestnet includes testnet chains as candidates
	AllowTestnet bool
}

// SelectEndpoint picks the healthiest chain matching the preferences
// and returns its chain id and endpoint URL. Candidates are ranked
// healthy-first, then by lowest gas price multiplier, then by lowest
// primary endpoint priority. An unhealthy chain still yields its
// primary endpoint as a fallback.
func (m *Monitor) SelectEndpoint(ctx context.Context, prefs SelectionPreferences) (string, string, error) {
	if prefs.PreferredChainID != "" {
		desc, ok := m.registry.Get(prefs.PreferredChainID)
		if !ok {
			return "", "", errs.ChainUnsupported(prefs.PreferredChainID)
		}
		return desc.ID, m.endpointFor(ctx, desc), nil
	}

	candidates := m.registry.List()
	if !prefs.AllowTestnet {
		kept := candidates[:0]
		for _, d := range candidates {
			if !d.IsTestnet {
				kept = append(kept, d)
			}
		}
		candidates = kept
	}
	if len(candidates) == 0 {
		return "", "", errs.Validation("no candidate chains match the given preferences")
	}

	healthy := func(d types.ChainDescriptor) bool {
		rec, ok := m.registry.Health(d.ID)
		return ok && rec.IsHealthy()
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		hi, hj := healthy(candidates[i]), healthy(candidates[j])
		if hi != hj {
			return hi
		}
		if candidates[i].GasPriceMultiplier != candidates[j].GasPriceMultiplier {
			return candidates[i].GasPriceMultiplier < candidates[j].GasPriceMultiplier
		}
		return candidates[i].PrimaryEndpoint().Priority < candidates[j].PrimaryEndpoint().Priority
	})

	best := candidates[0]
	return best.ID, m.endpointFor(ctx, best), nil
}

// endpointFor returns the chain's current endpoint, probing once when
// the chain has never been checked.
func (m *Monitor) endpointFor(ctx context.Context, desc types.ChainDescriptor) string {
	rec, ok := m.registry.Health(desc.ID)
	if !ok || rec.Endpoint == "" {
		probed, err := m.Probe(ctx, desc.ID)
		if err == nil && probed.Endpoint != "" {
			return probed.Endpoint
		}
		return desc.PrimaryEndpoint().URL
	}
	return rec.Endpoint
}

// updateHealth mutates the record through the registry and fires the
// health change hook on status transitions.
func (m *Monitor) updateHealth(chainID string, fn func(*types.HealthRecord)) types.HealthRecord {
	var previous types.HealthStatus
	record, ok := m.registry.UpdateHealth(chainID, func(r *types.HealthRecord) {
		previous = r.Status
		fn(r)
	})
	if !ok {
		return types.HealthRecord{}
	}
	if m.onHealthChange != nil && record.Status != previous {
		m.onHealthChange(chainID, record)
	}
	return record
}
