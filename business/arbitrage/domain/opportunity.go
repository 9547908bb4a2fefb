// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/arbscan/arbscan/business/pricing/domain"
)

// Opportunity is one qualifying arbitrage candidate: a single exchange
// whose quote cleared every gate in an analysis cycle.
type Opportunity struct {
	Pair      pricingDomain.Pair
	Exchange  string
	CEXPrice  decimal.Decimal
	DEXPrice  decimal.Decimal
	Spread    pricingDomain.Spread
	Profit    decimal.Decimal // gross, in quote-asset units
	ExecTime  float64         // estimated seconds to fill
	Liquidity decimal.Decimal // pool depth in quote-asset units
	Timestamp time.Time
}

// NewOpportunity creates a record for a qualifying exchange.
func NewOpportunity(pair pricingDomain.Pair, exchange string, cexPrice, dexPrice, profit, liquidity decimal.Decimal, execTime float64) Opportunity {
	return Opportunity{
		Pair:      pair,
		Exchange:  exchange,
		CEXPrice:  cexPrice,
		DEXPrice:  dexPrice,
		Spread:    pricingDomain.CalculateSpread(cexPrice, dexPrice),
		Profit:    profit,
		ExecTime:  execTime,
		Liquidity: liquidity,
		Timestamp: time.Now(),
	}
}

// FormatAlert renders the opportunity as a Markdown alert message.
func (o Opportunity) FormatAlert() string {
	spreadPct, _ := o.Spread.Percent.Float64()

	return fmt.Sprintf(
		"🚀 *Arbitrage Opportunity* 🚀\n"+
			"• Pair: %s\n"+
			"• Exchange: %s\n"+
			"• CEX Price: $%s\n"+
			"• DEX Price: $%s\n"+
			"• Spread: %.2f%%\n"+
			"• Est. Profit: $%s\n"+
			"• Exec. Time: %.1fs\n"+
			"• Liquidity: $%s",
		o.Pair.String(),
		strings.ToUpper(o.Exchange),
		o.CEXPrice.StringFixed(6),
		o.DEXPrice.StringFixed(6),
		spreadPct,
		o.Profit.StringFixed(2),
		o.ExecTime,
		o.Liquidity.StringFixed(2),
	)
}
