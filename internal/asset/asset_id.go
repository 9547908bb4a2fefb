// Package asset models the tokens and currencies the scanner prices.
// Quantities stay in big.Int on the chain side; decimal.Decimal appears
// only at parsing and display boundaries.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID identifies an asset by chain and contract address. The symbol
// is display metadata only; two tokens with the same ticker on different
// chains are different assets.
type AssetID struct {
	chainID uint64
	address common.Address // zero = native coin
}

// NewNativeAssetID identifies a chain's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID identifies an ERC20 token by contract address.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if addr == (common.Address{}) {
		panic("asset: token address cannot be zero, use NewNativeAssetID for native coins")
	}
	return AssetID{
		chainID: chainID,
		address: addr,
	}
}

// NewFiatAssetID identifies an off-chain currency. Chain ID zero is
// reserved for fiat; the address slot holds the padded symbol so two
// fiat currencies never collide.
func NewFiatAssetID(symbol string) AssetID {
	return AssetID{
		chainID: 0,
		address: common.BytesToAddress(common.RightPadBytes([]byte(symbol), 20)),
	}
}

func (id AssetID) ChainID() uint64 {
	return id.chainID
}

// Address returns the contract address; zero for native coins.
func (id AssetID) Address() common.Address {
	return id.address
}

func (id AssetID) IsNative() bool {
	return id.chainID != 0 && id.address == (common.Address{})
}

func (id AssetID) IsToken() bool {
	return id.chainID != 0 && id.address != (common.Address{})
}

func (id AssetID) IsFiat() bool {
	return id.chainID == 0
}

func (id AssetID) String() string {
	if id.IsFiat() {
		return fmt.Sprintf("fiat:%s", id.address.Hex()[:10])
	}
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.chainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

func (id AssetID) Equals(other AssetID) bool {
	return id.chainID == other.chainID && id.address == other.address
}
