package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Spread represents the price difference between a CEX and a DEX.
type Spread struct {
	CEXPrice  decimal.Decimal
	DEXPrice  decimal.Decimal
	Absolute  decimal.Decimal // DEX - CEX
	Percent   decimal.Decimal // |DEX - CEX| / CEX * 100
	Direction SpreadDirection
}

// SpreadDirection indicates the profitable trade direction.
type SpreadDirection string

const (
	SpreadCEXToDEX SpreadDirection = "CEX_TO_DEX" // Buy on CEX, sell on DEX
	SpreadDEXToCEX SpreadDirection = "DEX_TO_CEX" // Buy on DEX, sell on CEX
	SpreadNone     SpreadDirection = "NONE"       // No spread
)

// CalculateSpread computes the spread between CEX and DEX prices.
func CalculateSpread(cexPrice, dexPrice decimal.Decimal) Spread {
	absolute := dexPrice.Sub(cexPrice)
	percent := decimal.Zero
	if !cexPrice.IsZero() {
		percent = absolute.Abs().Div(cexPrice).Mul(hundred)
	}

	var direction SpreadDirection
	switch {
	case absolute.IsPositive():
		direction = SpreadCEXToDEX
	case absolute.IsNegative():
		direction = SpreadDEXToCEX
	default:
		direction = SpreadNone
	}

	return Spread{
		CEXPrice:  cexPrice,
		DEXPrice:  dexPrice,
		Absolute:  absolute,
		Percent:   percent,
		Direction: direction,
	}
}

// EstimateProfit returns the gross profit of closing the spread with the
// given notional: |CEX - DEX| * notional.
func EstimateProfit(cexPrice, dexPrice, notional decimal.Decimal) decimal.Decimal {
	return cexPrice.Sub(dexPrice).Abs().Mul(notional)
}
