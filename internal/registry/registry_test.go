package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/types"
)

func testDescriptor(id string, chainID int64) types.ChainDescriptor {
	return types.ChainDescriptor{
		ID:      id,
		ChainID: chainID,
		Endpoints: []types.RPCEndpoint{
			{URL: "https://rpc." + id + ".example", Priority: 0},
		},
		GasPriceMultiplier: 1.1,
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.Register(testDescriptor("ethereum", 1)))

	desc, ok := r.Get("ethereum")
	assert.True(t, ok, "Registered chain should be retrievable")
	assert.Equal(t, int64(1), desc.ChainID)

	_, ok = r.Get("solana")
	assert.False(t, ok, "Unregistered chain should not be found")

	health, ok := r.Health("ethereum")
	require.True(t, ok)
	assert.Equal(t, types.HealthUnknown, health.Status, "New chains start with unknown health")
}

func TestRegistry_Validation(t *testing.T) {
	r := New(nil)

	err := r.Register(types.ChainDescriptor{ID: "", Endpoints: []types.RPCEndpoint{{URL: "x"}}})
	assert.True(t, errs.IsKind(err, errs.KindValidation), "Empty id should be rejected")

	err = r.Register(types.ChainDescriptor{ID: "empty"})
	assert.True(t, errs.IsKind(err, errs.KindValidation), "Missing endpoints should be rejected")

	assert.Equal(t, 0, r.Len(), "Invalid descriptors must not be stored")
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	r := New(nil)
	for _, id := range []string{"ethereum", "polygon", "base"} {
		require.NoError(t, r.Register(testDescriptor(id, 1)))
	}

	descs := r.List()
	require.Len(t, descs, 3)
	assert.Equal(t, "ethereum", descs[0].ID)
	assert.Equal(t, "polygon", descs[1].ID)
	assert.Equal(t, "base", descs[2].ID)
}

func TestRegistry_OverwriteResetsHealth(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(testDescriptor("ethereum", 1)))

	_, ok := r.UpdateHealth("ethereum", func(h *types.HealthRecord) {
		h.Status = types.HealthHealthy
		h.SuccessCount = 5
	})
	require.True(t, ok)

	// Re-register with a new descriptor
	desc := testDescriptor("ethereum", 1)
	desc.GasPriceMultiplier = 2.0
	require.NoError(t, r.Register(desc))

	got, _ := r.Get("ethereum")
	assert.Equal(t, 2.0, got.GasPriceMultiplier, "Overwrite should replace the descriptor")

	health, _ := r.Health("ethereum")
	assert.Equal(t, types.HealthUnknown, health.Status, "Overwrite should reset health to unknown")
	assert.Zero(t, health.SuccessCount, "Overwrite should discard old counters")
	assert.Equal(t, "ethereum", r.List()[0].ID, "Overwrite should keep the registration order slot")
}

func TestRegistry_Remove(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(testDescriptor("ethereum", 1)))
	require.NoError(t, r.Register(testDescriptor("polygon", 137)))

	assert.True(t, r.Remove("ethereum"), "Removing a registered chain should succeed")
	assert.False(t, r.Remove("ethereum"), "Removing twice should report false")

	_, ok := r.Get("ethereum")
	assert.False(t, ok)
	_, ok = r.Health("ethereum")
	assert.False(t, ok, "Health records go with their chain")

	descs := r.List()
	require.Len(t, descs, 1)
	assert.Equal(t, "polygon", descs[0].ID)
}

func TestRegistry_UpdateHealthSnapshot(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(testDescriptor("ethereum", 1)))

	record, ok := r.UpdateHealth("ethereum", func(h *types.HealthRecord) {
		h.Status = types.HealthHealthy
		h.SuccessCount++
		h.Endpoint = "https://rpc.ethereum.example"
	})
	require.True(t, ok)
	assert.Equal(t, types.HealthHealthy, record.Status)
	assert.Equal(t, uint64(1), record.SuccessCount)

	_, ok = r.UpdateHealth("missing", func(h *types.HealthRecord) {})
	assert.False(t, ok, "Updating an unregistered chain should report false")
}

func TestNewWithDefaults(t *testing.T) {
	r := NewWithDefaults(nil)
	assert.Greater(t, r.Len(), 0, "Default registry should not be empty")

	eth, ok := r.Get("ethereum")
	require.True(t, ok, "Ethereum should be in the default set")
	assert.Equal(t, int64(1), eth.ChainID)
	assert.NotEmpty(t, eth.Endpoints)

	sepolia, ok := r.Get("sepolia")
	require.True(t, ok, "Sepolia should be in the default set")
	assert.True(t, sepolia.IsTestnet, "Sepolia is a testnet")
}
