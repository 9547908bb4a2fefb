package domain

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPair_Formats(t *testing.T) {
	tests := []struct {
		base, quote string
		str         string
		symbol      string
		oracleKey   string
	}{
		{"ETH", "USDT", "ETH/USDT", "ETHUSDT", "ETH/USD"},
		{"BTC", "USDT", "BTC/USDT", "BTCUSDT", "BTC/USD"},
		{"LINK", "USDC", "LINK/USDC", "LINKUSDC", "LINK/USD"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			p := NewPair(tt.base, tt.quote)
			if got := p.String(); got != tt.str {
				t.Errorf("String() = %s, want %s", got, tt.str)
			}
			if got := p.Symbol(); got != tt.symbol {
				t.Errorf("Symbol() = %s, want %s", got, tt.symbol)
			}
			if got := p.OracleKey(); got != tt.oracleKey {
				t.Errorf("OracleKey() = %s, want %s", got, tt.oracleKey)
			}
		})
	}
}

func TestExchangeQuote_Success(t *testing.T) {
	pair := NewPair("ETH", "USDT")

	ok := NewExchangeQuote("binance", pair, decimal.NewFromInt(3000))
	if !ok.Success() {
		t.Error("quote with price and no error should succeed")
	}

	failed := NewFailedQuote("kraken", pair, fmt.Errorf("timeout"))
	if failed.Success() {
		t.Error("failed quote should not report success")
	}
	if failed.Err == nil {
		t.Error("failed quote should carry its error")
	}
}
