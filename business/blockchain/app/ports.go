// Package app contains port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arbscan/arbscan/business/blockchain/domain"
)

// ContractReader executes read-only contract calls against the chain.
type ContractReader interface {
	// Call packs the method call, executes it and returns the unpacked outputs.
	Call(ctx context.Context, to common.Address, abiJSON, method string, args ...any) ([]any, error)
}

// GasPriceProvider retrieves the current gas price.
type GasPriceProvider interface {
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)
}
