// Package chains exposes the query and execution surface over the
// registry, the health monitor, and the middleware pipeline. The HTTP
// route layer consumes it to answer /chains style requests.
package chains

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/circuitbreaker"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/health"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/middleware"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/registry"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/transport"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/types"
)

// Service ties the execution layer together. It owns nothing global;
// the composition root constructs and passes it by reference.
type Service struct {
	registry  *registry.Registry
	monitor   *health.Monitor
	transport transport.Transport
	breakers  *circuitbreaker.Group
	chain     *middleware.Chain
	logg      logrus.FieldLogger
}

// Options configures a Service
type Options struct {
	Registry  *registry.Registry
	Monitor   *health.Monitor
	Transport transport.Transport
	Breakers  *circuitbreaker.Group

	// Chain is the middleware pipeline every Invoke runs through. Nil
	// means no interceptors.
	Chain *middleware.Chain

	Logger logrus.FieldLogger
}

// New creates a service
func New(opts Options) *Service {
	if opts.Chain == nil {
		opts.Chain = middleware.NewChain()
	}
	if opts.Breakers == nil {
		opts.Breakers = circuitbreaker.NewGroup(opts.Logger, nil)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		registry:  opts.Registry,
		monitor:   opts.Monitor,
		transport: opts.Transport,
		breakers:  opts.Breakers,
		chain:     opts.Chain,
		logg:      opts.Logger,
	}
}

// GetAllChains returns every registered chain descriptor
func (s *Service) GetAllChains() []types.ChainDescriptor {
	return s.registry.List()
}

// CheckChainHealth probes one chain and returns its health record
func (s *Service) CheckChainHealth(ctx context.Context, chainID string) (types.HealthRecord, error) {
	return s.monitor.Probe(ctx, chainID)
}

// CheckAllChainsHealth probes every chain concurrently
func (s *Service) CheckAllChainsHealth(ctx context.Context) map[string]types.HealthRecord {
	return s.monitor.ProbeAll(ctx)
}

// BestChain is the selection result for an operation
type BestChain struct {
	ChainID       string             `json:"chain_id"`
	Endpoint      string             `json:"endpoint"`
	Health        types.HealthRecord `json:"health"`
	Breaker       string             `json:"breaker_state"`
	Operation     string             `json:"operation,omitempty"`
	SelectedAt    time.Time          `json:"selected_at"`
	GasMultiplier float64            `json:"gas_price_multiplier"`
}

// GetBestChainForOperation selects the chain and endpoint an operation
// should run against, honoring the optional preferences.
func (s *Service) GetBestChainForOperation(ctx context.Context, operation string, prefs health.SelectionPreferences) (BestChain, error) {
	chainID, endpoint, err := s.monitor.SelectEndpoint(ctx, prefs)
	if err != nil {
		return BestChain{}, err
	}

	desc, _ := s.registry.Get(chainID)
	record, _ := s.registry.Health(chainID)
	return BestChain{
		ChainID:       chainID,
		Endpoint:      endpoint,
		Health:        record,
		Breaker:       s.breakers.Get(chainID).State().String(),
		Operation:     operation,
		SelectedAt:    time.Now(),
		GasMultiplier: desc.GasPriceMultiplier,
	}, nil
}

// AddCustomChain registers a caller-supplied chain descriptor
func (s *Service) AddCustomChain(desc types.ChainDescriptor) error {
	return s.registry.Register(desc)
}

// RemoveCustomChain removes a chain from the registry
func (s *Service) RemoveCustomChain(chainID string) error {
	if !s.registry.Remove(chainID) {
		return errs.ChainUnsupported(chainID)
	}
	return nil
}

// BreakerStats returns circuit breaker snapshots for every chain that
// has been called
func (s *Service) BreakerStats() []circuitbreaker.Stats {
	return s.breakers.AllStats()
}

// ResetBreakers forces every breaker back to closed
func (s *Service) ResetBreakers() {
	s.breakers.ResetAll()
}

// Invoke runs one RPC operation on a chain through the middleware
// pipeline. The endpoint comes from the chain's current health record
// (probing once when the chain has never been checked) and the actual
// network call is protected by the chain's circuit breaker. The caller
// receives a single terminal error carrying the chain id, the attempt
// count, and the last underlying cause.
func (s *Service) Invoke(ctx context.Context, chainID, method string, args ...any) (json.RawMessage, error) {
	if _, ok := s.registry.Get(chainID); !ok {
		return nil, errs.ChainUnsupported(chainID)
	}

	mctx := middleware.NewContext("chains/"+chainID+"/"+method, chainID)

	var result json.RawMessage
	err := s.chain.Execute(ctx, mctx, func(ctx context.Context) error {
		endpoint := s.currentEndpoint(ctx, chainID)
		breaker := s.breakers.Get(chainID)

		return breaker.Execute(ctx, func(ctx context.Context) error {
			start := time.Now()
			raw, err := s.transport.Call(ctx, endpoint, method, args...)
			if err != nil {
				return err
			}
			result = raw
			mctx.Response = &middleware.Response{
				Timestamp: time.Now(),
				Duration:  time.Since(start),
				Metadata:  map[string]any{"endpoint": endpoint},
				Body:      raw,
			}
			return nil
		})
	})
	if err != nil {
		return nil, terminalError(chainID, mctx, err)
	}

	// A cache hit short-circuits the handler, so pull the body from
	// the context when the handler never ran.
	if result == nil && mctx.Response != nil {
		if body, ok := mctx.Response.Body.(json.RawMessage); ok {
			result = body
		}
	}
	return result, nil
}

// currentEndpoint returns the endpoint the chain's health record points
// at, falling back to a probe on first use.
func (s *Service) currentEndpoint(ctx context.Context, chainID string) string {
	if rec, ok := s.registry.Health(chainID); ok && rec.Endpoint != "" {
		return rec.Endpoint
	}
	rec, err := s.monitor.Probe(ctx, chainID)
	if err != nil || rec.Endpoint == "" {
		if desc, ok := s.registry.Get(chainID); ok {
			return desc.PrimaryEndpoint().URL
		}
		return ""
	}
	return rec.Endpoint
}

// terminalError folds the retry metadata into one structured error for
// the caller. Validation and rate limit errors pass through unchanged.
func terminalError(chainID string, mctx *middleware.Context, err error) error {
	if errs.IsKind(err, errs.KindValidation) || errs.IsKind(err, errs.KindRateLimitExceeded) {
		return err
	}

	attempts := 1
	if n, ok := mctx.Metadata["retryAttempt"].(int); ok {
		attempts = n + 1
	}
	return errs.RetryExhausted(chainID, attempts, err)
}
