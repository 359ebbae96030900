package health

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/registry"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/transport"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/types"
)

// fakeTransport scripts per-endpoint probe outcomes and records which
// endpoints were contacted.
type fakeTransport struct {
	mu      sync.Mutex
	heights map[string]uint64
	fail    map[string]error
	probed  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		heights: make(map[string]uint64),
		fail:    make(map[string]error),
	}
}

func (f *fakeTransport) Probe(ctx context.Context, endpointURL string) (transport.BlockInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.probed = append(f.probed, endpointURL)
	if err, ok := f.fail[endpointURL]; ok {
		return transport.BlockInfo{}, err
	}
	return transport.BlockInfo{Height: f.heights[endpointURL]}, nil
}

func (f *fakeTransport) Call(ctx context.Context, endpointURL, method string, args ...any) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTransport) probedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.probed...)
}

func testChain(id string, urls ...string) types.ChainDescriptor {
	desc := types.ChainDescriptor{ID: id, ChainID: 1, GasPriceMultiplier: 1.1}
	for i, u := range urls {
		desc.Endpoints = append(desc.Endpoints, types.RPCEndpoint{URL: u, Priority: i})
	}
	return desc
}

func TestProbe_FirstSuccessWins(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Register(testChain("ethereum", "https://a", "https://b", "https://c")))

	ft := newFakeTransport()
	ft.fail["https://a"] = errors.New("connection refused")
	ft.heights["https://b"] = 1234

	m := New(reg, ft, Options{})
	defer m.Stop()

	record, err := m.Probe(context.Background(), "ethereum")
	require.NoError(t, err)

	assert.Equal(t, types.HealthHealthy, record.Status, "A responding endpoint makes the chain healthy")
	assert.Equal(t, "https://b", record.Endpoint, "The first responding endpoint in priority order wins")
	assert.Equal(t, uint64(1234), record.BlockHeight)
	assert.Equal(t, uint64(1), record.SuccessCount)
	assert.Empty(t, record.LastError, "A successful probe clears the last error")
	assert.Equal(t, []string{"https://a", "https://b"}, ft.probedURLs(),
		"Lower-priority endpoints must not be contacted after a success")
}

func TestProbe_AllFailFallsBackToPrimary(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Register(testChain("ethereum", "https://a", "https://b")))

	ft := newFakeTransport()
	ft.fail["https://a"] = errors.New("connection refused")
	ft.fail["https://b"] = errors.New("i/o timeout")

	m := New(reg, ft, Options{})
	defer m.Stop()

	record, err := m.Probe(context.Background(), "ethereum")
	require.NoError(t, err, "Total endpoint failure is reported through the record, not an error")

	assert.Equal(t, types.HealthUnhealthy, record.Status)
	assert.False(t, record.IsHealthy())
	assert.Equal(t, "https://a", record.Endpoint,
		"The record still points at the priority-0 endpoint so callers have something to try")
	assert.Equal(t, uint64(1), record.ErrorCount)
	assert.Contains(t, record.LastError, "timeout", "The last endpoint's error is kept")
}

func TestProbe_UnregisteredChain(t *testing.T) {
	m := New(registry.New(nil), newFakeTransport(), Options{})
	defer m.Stop()

	_, err := m.Probe(context.Background(), "solana")
	assert.True(t, errs.IsKind(err, errs.KindChainUnsupported),
		"An unregistered chain is the only Probe error case")
}

func TestProbe_CountersAccumulate(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Register(testChain("ethereum", "https://a")))

	ft := newFakeTransport()
	m := New(reg, ft, Options{})
	defer m.Stop()

	ctx := context.Background()
	_, err := m.Probe(ctx, "ethereum")
	require.NoError(t, err)

	ft.mu.Lock()
	ft.fail["https://a"] = errors.New("connection refused")
	ft.mu.Unlock()
	_, err = m.Probe(ctx, "ethereum")
	require.NoError(t, err)

	ft.mu.Lock()
	delete(ft.fail, "https://a")
	ft.mu.Unlock()
	record, err := m.Probe(ctx, "ethereum")
	require.NoError(t, err)

	assert.Equal(t, uint64(2), record.SuccessCount, "Success counter survives intervening failures")
	assert.Equal(t, uint64(1), record.ErrorCount, "Error counter survives intervening successes")
	assert.Equal(t, types.HealthHealthy, record.Status)
}

func TestProbeAll_IsolatesFailures(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Register(testChain("ethereum", "https://eth")))
	require.NoError(t, reg.Register(testChain("polygon", "https://poly")))
	require.NoError(t, reg.Register(testChain("base", "https://base")))

	ft := newFakeTransport()
	ft.fail["https://poly"] = errors.New("connection refused")

	m := New(reg, ft, Options{MaxParallel: 2})
	defer m.Stop()

	records := m.ProbeAll(context.Background())
	require.Len(t, records, 3, "Every chain appears in the result regardless of outcome")

	assert.Equal(t, types.HealthHealthy, records["ethereum"].Status)
	assert.Equal(t, types.HealthUnhealthy, records["polygon"].Status,
		"One chain's failure never hides it from the result")
	assert.Equal(t, types.HealthHealthy, records["base"].Status)
}

func TestSelectEndpoint_PreferredChainPins(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Register(testChain("ethereum", "https://eth")))
	require.NoError(t, reg.Register(testChain("polygon", "https://poly")))

	ft := newFakeTransport()
	ft.fail["https://eth"] = errors.New("connection refused")

	m := New(reg, ft, Options{})
	defer m.Stop()

	chainID, url, err := m.SelectEndpoint(context.Background(), SelectionPreferences{PreferredChainID: "ethereum"})
	require.NoError(t, err)
	assert.Equal(t, "ethereum", chainID, "The preferred chain is honored even when unhealthy")
	assert.Equal(t, "https://eth", url)

	_, _, err = m.SelectEndpoint(context.Background(), SelectionPreferences{PreferredChainID: "solana"})
	assert.True(t, errs.IsKind(err, errs.KindChainUnsupported))
}

func TestSelectEndpoint_RanksHealthyThenGas(t *testing.T) {
	reg := registry.New(nil)

	cheapButDown := testChain("polygon", "https://poly")
	cheapButDown.GasPriceMultiplier = 1.0
	expensive := testChain("ethereum", "https://eth")
	expensive.GasPriceMultiplier = 1.5
	cheap := testChain("base", "https://base")
	cheap.GasPriceMultiplier = 1.2

	require.NoError(t, reg.Register(cheapButDown))
	require.NoError(t, reg.Register(expensive))
	require.NoError(t, reg.Register(cheap))

	ft := newFakeTransport()
	ft.fail["https://poly"] = errors.New("connection refused")

	m := New(reg, ft, Options{})
	defer m.Stop()

	// Establish health records first
	m.ProbeAll(context.Background())

	chainID, url, err := m.SelectEndpoint(context.Background(), SelectionPreferences{})
	require.NoError(t, err)
	assert.Equal(t, "base", chainID, "Healthy chains beat a cheaper unhealthy one; gas breaks the tie among healthy")
	assert.Equal(t, "https://base", url)
}

func TestSelectEndpoint_ExcludesTestnetsByDefault(t *testing.T) {
	reg := registry.New(nil)

	testnet := testChain("sepolia", "https://sepolia")
	testnet.IsTestnet = true
	testnet.GasPriceMultiplier = 0.5
	require.NoError(t, reg.Register(testnet))
	require.NoError(t, reg.Register(testChain("ethereum", "https://eth")))

	m := New(reg, newFakeTransport(), Options{})
	defer m.Stop()
	m.ProbeAll(context.Background())

	chainID, _, err := m.SelectEndpoint(context.Background(), SelectionPreferences{})
	require.NoError(t, err)
	assert.Equal(t, "ethereum", chainID, "Testnets are excluded unless explicitly allowed")

	chainID, _, err = m.SelectEndpoint(context.Background(), SelectionPreferences{AllowTestnet: true})
	require.NoError(t, err)
	assert.Equal(t, "sepolia", chainID, "With testnets allowed, the cheaper testnet wins")
}

func TestSelectEndpoint_NoCandidates(t *testing.T) {
	reg := registry.New(nil)
	testnet := testChain("sepolia", "https://sepolia")
	testnet.IsTestnet = true
	require.NoError(t, reg.Register(testnet))

	m := New(reg, newFakeTransport(), Options{})
	defer m.Stop()

	_, _, err := m.SelectEndpoint(context.Background(), SelectionPreferences{})
	assert.True(t, errs.IsKind(err, errs.KindValidation),
		"A registry with only excluded chains yields a validation error")
}

func TestOnHealthChange_FiresOnTransitionsOnly(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Register(testChain("ethereum", "https://a")))

	var mu sync.Mutex
	var changes []types.HealthStatus
	ft := newFakeTransport()
	m := New(reg, ft, Options{
		OnHealthChange: func(chainID string, record types.HealthRecord) {
			mu.Lock()
			changes = append(changes, record.Status)
			mu.Unlock()
		},
	})
	defer m.Stop()

	ctx := context.Background()
	_, _ = m.Probe(ctx, "ethereum") // unknown -> healthy
	_, _ = m.Probe(ctx, "ethereum") // healthy -> healthy, no event

	ft.mu.Lock()
	ft.fail["https://a"] = errors.New("connection refused")
	ft.mu.Unlock()
	_, _ = m.Probe(ctx, "ethereum") // healthy -> unhealthy

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []types.HealthStatus{types.HealthHealthy, types.HealthUnhealthy}, changes,
		"The hook fires on status transitions, not on every probe")
}
