package types

import (
	"math/big"
	"sort"
)

// Network represents supported EVM networks
type Network string

const (
	NetworkAvalanche   Network = "avalanche"
	NetworkFuji        Network = "fuji" // testnet
	NetworkPolygon     Network = "polygon"
	NetworkPolygonAmoy Network = "polygon-amoy" // testnet
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia" // testnet
)

type networkInfo struct {
	chainID int64
	name    string
	testnet bool
}

var networks = map[Network]networkInfo{
	NetworkAvalanche:   {chainID: 43114, name: "Avalanche"},
	NetworkFuji:        {chainID: 43113, name: "Avalanche Fuji", testnet: true},
	NetworkPolygon:     {chainID: 137, name: "Polygon"},
	NetworkPolygonAmoy: {chainID: 80002, name: "Polygon Amoy", testnet: true},
	NetworkBase:        {chainID: 8453, name: "Base"},
	NetworkBaseSepolia: {chainID: 84532, name: "Base Sepolia", testnet: true},
}

// IsSupported reports whether the network is known.
func (n Network) IsSupported() bool {
	_, ok := networks[n]
	return ok
}

func (n Network) IsTestnet() bool {
	return networks[n].testnet
}

// ChainID returns the EIP-155 chain id, or nil for an unknown network.
func (n Network) ChainID() *big.Int {
	info, ok := networks[n]
	if !ok {
		return nil
	}
	return big.NewInt(info.chainID)
}

// DisplayName is the human readable chain name returned to wallets.
func (n Network) DisplayName() string {
	if info, ok := networks[n]; ok {
		return info.name
	}
	return string(n)
}

func (n Network) String() string {
	return string(n)
}

// SupportedNetworks lists the known networks sorted by name.
func SupportedNetworks() []Network {
	out := make([]Network, 0, len(networks))
	for n := range networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
