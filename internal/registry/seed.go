package registry

import (
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/types"
)

// DefaultDescriptors returns the built-in chain set. Endpoint lists are
// public RPC URLs ordered by priority; deployments override them via
// configuration or AddCustomChain.
func DefaultDescriptors() []types.ChainDescriptor {
	return []types.ChainDescriptor{
		{
			ID:      "ethereum",
			ChainID: 1,
			Endpoints: []types.RPCEndpoint{
				{URL: "https://eth.llamarpc.com", Priority: 0},
				{URL: "https://rpc.ankr.com/eth", Priority: 1},
				{URL: "https://ethereum-rpc.publicnode.com", Priority: 2},
			},
			NativeCurrency:     types.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			GasPriceMultiplier: 1.2,
			MinGasPriceGwei:    1,
			MaxGasPriceGwei:    500,
		},
		{
			ID:      "polygon",
			ChainID: 137,
			Endpoints: []types.RPCEndpoint{
				{URL: "https://polygon-rpc.com", Priority: 0},
				{URL: "https://rpc.ankr.com/polygon", Priority: 1},
			},
			NativeCurrency:     types.NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
			GasPriceMultiplier: 1.5,
			MinGasPriceGwei:    30,
			MaxGasPriceGwei:    1000,
		},
		{
			ID:      "arbitrum",
			ChainID: 42161,
			Endpoints: []types.RPCEndpoint{
				{URL: "https://arb1.arbitrum.io/rpc", Priority: 0},
				{URL: "https://rpc.ankr.com/arbitrum", Priority: 1},
			},
			NativeCurrency:     types.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			GasPriceMultiplier: 1.1,
		},
		{
			ID:      "optimism",
			ChainID: 10,
			Endpoints: []types.RPCEndpoint{
				{URL: "https://mainnet.optimism.io", Priority: 0},
				{URL: "https://rpc.ankr.com/optimism", Priority: 1},
			},
			NativeCurrency:     types.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			GasPriceMultiplier: 1.1,
		},
		{
			ID:      "base",
			ChainID: 8453,
			Endpoints: []types.RPCEndpoint{
				{URL: "https://mainnet.base.org", Priority: 0},
				{URL: "https://base-rpc.publicnode.com", Priority: 1},
			},
			NativeCurrency:     types.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			GasPriceMultiplier: 1.1,
		},
		{
			ID:      "binance",
			ChainID: 56,
			Endpoints: []types.RPCEndpoint{
				{URL: "https://bsc-dataseed.binance.org", Priority: 0},
				{URL: "https://rpc.ankr.com/bsc", Priority: 1},
			},
			NativeCurrency:     types.NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
			GasPriceMultiplier: 1.2,
			MinGasPriceGwei:    3,
		},
		{
			ID:      "avalanche",
			ChainID: 43114,
			Endpoints: []types.RPCEndpoint{
				{URL: "https://api.avax.network/ext/bc/C/rpc", Priority: 0},
				{URL: "https://rpc.ankr.com/avalanche", Priority: 1},
			},
			NativeCurrency:     types.NativeCurrency{Name: "Avalanche", Symbol: "AVAX", Decimals: 18},
			GasPriceMultiplier: 1.3,
			MinGasPriceGwei:    25,
		},
		{
			ID:      "sepolia",
			ChainID: 11155111,
			Endpoints: []types.RPCEndpoint{
				{URL: "https://rpc.sepolia.org", Priority: 0},
				{URL: "https://ethereum-sepolia-rpc.publicnode.com", Priority: 1},
			},
			NativeCurrency:     types.NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
			GasPriceMultiplier: 1.0,
			IsTestnet:          true,
		},
	}
}
