// Package types contains shared type definitions used across multiple packages
package types

import (
	"sort"
	"time"
)

// HealthStatus describes the liveness of a chain as seen by the health monitor
type HealthStatus string

// Possible chain health states
const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// RPCEndpoint is one RPC URL serving a chain. Endpoints are tried in
// ascending Priority order, lowest first.
type RPCEndpoint struct {
	URL      string `json:"url"`
	Priority int    `json:"priority"`
}

// NativeCurrency describes the native asset of a chain
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainDescriptor holds the static configuration for a blockchain network.
// Descriptors are immutable after registration; the only mutable state
// associated with a chain is its HealthRecord, owned by the health monitor.
type ChainDescriptor struct {
	// ID is the registry key, e.g. "ethereum"
	ID string `json:"id"`

	// ChainID is the numeric network id, e.g. 1 for Ethereum mainnet
	ChainID int64 `json:"chain_id"`

	// Endpoints is the ordered list of RPC endpoints for this chain
	Endpoints []RPCEndpoint `json:"endpoints"`

	NativeCurrency NativeCurrency `json:"native_currency"`

	// GasPriceMultiplier scales gas price estimates for this chain
	GasPriceMultiplier float64 `json:"gas_price_multiplier"`

	IsTestnet bool `json:"is_testnet"`

	// Gas price bounds in gwei, zero means unbounded
	MinGasPriceGwei float64 `json:"min_gas_price_gwei,omitempty"`
	MaxGasPriceGwei float64 `json:"max_gas_price_gwei,omitempty"`
}

// OrderedEndpoints returns the chain's endpoints sorted by ascending
// priority. The sort is stable so equal priorities keep their
// configured order.
func (d ChainDescriptor) OrderedEndpoints() []RPCEndpoint {
	endpoints := make([]RPCEndpoint, len(d.Endpoints))
	copy(endpoints, d.Endpoints)
	sort.SliceStable(endpoints, func(i, j int) bool {
		return endpoints[i].Priority < endpoints[j].Priority
	})
	return endpoints
}

// PrimaryEndpoint returns the lowest-priority endpoint, the one tried
// first and the fallback handed out when every endpoint fails a probe.
func (d ChainDescriptor) PrimaryEndpoint() RPCEndpoint {
	ordered := d.OrderedEndpoints()
	if len(ordered) == 0 {
		return RPCEndpoint{}
	}
	return ordered[0]
}

// HealthRecord is the liveness/latency snapshot for one chain. All
// fields are point-in-time values safe to serialize to JSON.
type HealthRecord struct {
	Status         HealthStatus `json:"status"`
	LastChecked    time.Time    `json:"last_checked"`
	ResponseTimeMs int64        `json:"response_time_ms"`
	SuccessCount   uint64       `json:"success_count"`
	ErrorCount     uint64       `json:"error_count"`

	// Endpoint is the URL the last probe settled on. When the chain is
	// unhealthy this is the primary endpoint, kept usable as a fallback.
	Endpoint string `json:"endpoint,omitempty"`

	// BlockHeight is the latest block height seen by a successful probe
	BlockHeight uint64 `json:"block_height,omitempty"`

	// LastError is the last probe error message, empty while healthy
	LastError string `json:"last_error,omitempty"`
}

// IsHealthy reports whether the chain responded to its last probe.
func (r HealthRecord) IsHealthy() bool {
	return r.Status == HealthHealthy
}
