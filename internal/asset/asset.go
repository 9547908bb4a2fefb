package asset

import "github.com/ethereum/go-ethereum/common"

// Asset carries the metadata needed to interpret raw on-chain values:
// a stable identity plus symbol and decimals.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

func NewAsset(id AssetID, symbol string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	return &Asset{
		id:       id,
		symbol:   symbol,
		decimals: decimals,
	}
}

func NewAssetWithName(id AssetID, symbol, name string, decimals uint8) *Asset {
	a := NewAsset(id, symbol, decimals)
	a.name = name
	return a
}

func (a *Asset) ID() AssetID {
	return a.id
}

func (a *Asset) Symbol() string {
	return a.symbol
}

// Name falls back to the symbol when no long name was given.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

func (a *Asset) Decimals() uint8 {
	return a.decimals
}

func (a *Asset) ChainID() uint64 {
	return a.id.ChainID()
}

func (a *Asset) IsNative() bool {
	return a.id.IsNative()
}

func (a *Asset) IsToken() bool {
	return a.id.IsToken()
}

func (a *Asset) String() string {
	return a.symbol
}

// Equals compares by identity, not symbol.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}

// Address returns the token contract address; zero for native coins.
func (a *Asset) Address() common.Address {
	return a.id.Address()
}
