// Package transport is the boundary to the external chain client. It
// abstracts the RPC library behind a small interface so the health
// monitor and the execution layer never touch the wire format directly.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
)

// BlockInfo is the result of a liveness probe
type BlockInfo struct {
	Height uint64
}

// Transport issues calls against a single endpoint URL. Both operations
// honor context deadlines and return typed errors on failure.
type Transport interface {
	// Probe performs a lightweight liveness call (latest block number)
	Probe(ctx context.Context, endpointURL string) (BlockInfo, error)

	// Call forwards an arbitrary RPC request to the endpoint
	Call(ctx context.Context, endpointURL, method string, args ...any) (json.RawMessage, error)
}

// EthTransport implements Transport over go-ethereum's rpc client with
// a retrying HTTP client underneath. Clients are cached per endpoint.
type EthTransport struct {
	timeout    time.Duration
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*rpc.Client
}

// NewEthTransport creates a transport with the given per-call timeout
func NewEthTransport(timeout time.Duration) *EthTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EthTransport{
		timeout:    timeout,
		httpClient: newRetryClient(timeout),
		clients:    make(map[string]*rpc.Client),
	}
}

// newRetryClient creates an HTTP client with retry capabilities
func newRetryClient(timeout time.Duration) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.RetryWaitMin = 250 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = timeout
	c.Logger = nil
	return c.StandardClient()
}

// Probe issues an eth_blockNumber call under the per-call timeout.
func (t *EthTransport) Probe(ctx context.Context, endpointURL string) (BlockInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	client, err := t.client(ctx, endpointURL)
	if err != nil {
		return BlockInfo{}, errs.ConnectionFailed("", endpointURL, err)
	}

	var height hexutil.Uint64
	if err := client.CallContext(ctx, &height, "eth_blockNumber"); err != nil {
		return BlockInfo{}, classify(endpointURL, err)
	}
	return BlockInfo{Height: uint64(height)}, nil
}

// Call forwards an arbitrary RPC method to the endpoint and returns the
// raw JSON result.
func (t *EthTransport) Call(ctx context.Context, endpointURL, method string, args ...any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	client, err := t.client(ctx, endpointURL)
	if err != nil {
		return nil, errs.ConnectionFailed("", endpointURL, err)
	}

	var raw json.RawMessage
	if err := client.CallContext(ctx, &raw, method, args...); err != nil {
		return nil, classify(endpointURL, err)
	}
	return raw, nil
}

// client returns the cached rpc client for an endpoint, dialing on
// first use. HTTP dialing is lazy in go-ethereum so this only fails on
// malformed URLs.
func (t *EthTransport) client(ctx context.Context, endpointURL string) (*rpc.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[endpointURL]; ok {
		return c, nil
	}
	c, err := rpc.DialOptions(ctx, endpointURL, rpc.WithHTTPClient(t.httpClient))
	if err != nil {
		return nil, err
	}
	t.clients[endpointURL] = c
	return c, nil
}

// Close releases all cached clients
func (t *EthTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.clients {
		c.Close()
	}
	t.clients = make(map[string]*rpc.Client)
}

// classify maps a raw client error to the taxonomy: node-side errors
// become RPC errors, everything else is a connection failure. Both are
// recoverable, so a deadline hit surfaces as a retryable timeout.
func classify(endpointURL string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return errs.RPC("", err)
	}
	return errs.ConnectionFailed("", endpointURL, err)
}
