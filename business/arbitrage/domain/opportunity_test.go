package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/arbscan/arbscan/business/pricing/domain"
)

func TestNewOpportunity_ComputesSpread(t *testing.T) {
	pair := pricingDomain.NewPair("ETH", "USDT")
	opp := NewOpportunity(pair, "binance",
		decimal.NewFromInt(3000), decimal.NewFromInt(2985),
		decimal.NewFromInt(15000), decimal.NewFromInt(50000), 2.0)

	if want := decimal.NewFromFloat(0.5); !opp.Spread.Percent.Equal(want) {
		t.Errorf("spread percent = %s, want %s", opp.Spread.Percent, want)
	}
	if opp.Spread.Direction != pricingDomain.SpreadDEXToCEX {
		t.Errorf("direction = %v, want %v", opp.Spread.Direction, pricingDomain.SpreadDEXToCEX)
	}
	if opp.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestOpportunity_FormatAlert(t *testing.T) {
	pair := pricingDomain.NewPair("ETH", "USDT")
	opp := NewOpportunity(pair, "binance",
		decimal.NewFromInt(3000), decimal.NewFromInt(2985),
		decimal.NewFromInt(15000), decimal.NewFromInt(50000), 2.0)

	alert := opp.FormatAlert()

	for _, want := range []string{
		"*Arbitrage Opportunity*",
		"• Pair: ETH/USDT",
		"• Exchange: BINANCE",
		"• CEX Price: $3000.000000",
		"• DEX Price: $2985.000000",
		"• Spread: 0.50%",
		"• Est. Profit: $15000.00",
		"• Exec. Time: 2.0s",
		"• Liquidity: $50000.00",
	} {
		if !strings.Contains(alert, want) {
			t.Errorf("alert missing %q:\n%s", want, alert)
		}
	}
}
