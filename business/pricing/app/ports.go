// Package app contains port definitions for the pricing context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/arbscan/arbscan/business/pricing/domain"
)

// CEXProvider fetches quotes for a pair across all configured exchanges.
type CEXProvider interface {
	// GetPrices returns one quote per configured exchange. A failure on
	// one exchange never hides the results of the others.
	GetPrices(ctx context.Context, pair domain.Pair) map[string]domain.ExchangeQuote
}

// DEXProvider resolves the effective on-chain sale price of a token.
type DEXProvider interface {
	// GetPriceWithSlippage returns the quote-asset proceeds of selling the
	// given notional, with the slippage haircut applied.
	GetPriceWithSlippage(ctx context.Context, token common.Address, notional decimal.Decimal) (decimal.Decimal, error)
}

// LiquidityAnalyzer measures pool depth for a token against the quote asset.
type LiquidityAnalyzer interface {
	// GetLiquidity returns the quote-asset reserve of the token's pool.
	// A missing pool yields zero, not an error.
	GetLiquidity(ctx context.Context, token common.Address) (decimal.Decimal, error)
}

// PriceVerifier validates a market price against an external oracle.
type PriceVerifier interface {
	// VerifyPrice reports whether the market price is within tolerance
	// of the oracle reference. Missing or stale oracle data passes;
	// runtime errors fail.
	VerifyPrice(ctx context.Context, marketPrice decimal.Decimal, oracleKey string) bool
}
