package cex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/arbscan/arbscan/business/pricing/domain"
)

func TestAdapter_ExtractPrice(t *testing.T) {
	tests := []struct {
		name     string
		exchange string
		body     string
		want     string
		wantErr  bool
	}{
		{
			name:     "binance flat price field",
			exchange: "binance",
			body:     `{"symbol":"ETHUSDT","price":"3400.50000000"}`,
			want:     "3400.5",
		},
		{
			name:     "kucoin nested data.price",
			exchange: "kucoin",
			body:     `{"code":"200000","data":{"time":1700000000000,"price":"3401.2"}}`,
			want:     "3401.2",
		},
		{
			name:     "kraken first result ask",
			exchange: "kraken",
			body:     `{"error":[],"result":{"XETHZUSD":{"a":["3399.90000","5","5.000"],"b":["3399.80000","1","1.000"]}}}`,
			want:     "3399.9",
		},
		{
			name:     "coinbase data.amount",
			exchange: "coinbase",
			body:     `{"data":{"base":"ETH","currency":"USDT","amount":"3402.15"}}`,
			want:     "3402.15",
		},
		{
			name:     "generic price field",
			exchange: "bitfinex",
			body:     `{"price":"3400"}`,
			want:     "3400",
		},
		{
			name:     "generic last field",
			exchange: "bitstamp",
			body:     `{"last":"3398.7","volume":"120.5"}`,
			want:     "3398.7",
		},
		{
			name:     "generic numeric price",
			exchange: "okx",
			body:     `{"price":3400.25}`,
			want:     "3400.25",
		},
		{
			name:     "binance missing price",
			exchange: "binance",
			body:     `{"symbol":"ETHUSDT"}`,
			wantErr:  true,
		},
		{
			name:     "kraken empty result",
			exchange: "kraken",
			body:     `{"error":[],"result":{}}`,
			wantErr:  true,
		},
		{
			name:     "generic no known field",
			exchange: "unknown",
			body:     `{"bid":"3400"}`,
			wantErr:  true,
		},
		{
			name:     "malformed json",
			exchange: "binance",
			body:     `{"price":`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewAdapter(tt.exchange)

			price, err := adapter.ExtractPrice([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got price %s", price)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if price.String() != tt.want {
				t.Errorf("price = %s, want %s", price, tt.want)
			}
		})
	}
}

func TestAdapter_SignCanonicalPayloads(t *testing.T) {
	pair := domain.NewPair("ETH", "USDT")
	const secret = "test-secret"
	const timestamp = "1700000000000"

	sign := func(message string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(message))
		return hex.EncodeToString(mac.Sum(nil))
	}

	tests := []struct {
		exchange string
		message  string
	}{
		// Binance signs the query-style payload with the compact symbol.
		{"binance", "symbol=ETHUSDT&timestamp=1700000000000"},
		// Everyone else signs timestamp plus the slash-form pair.
		{"kucoin", "1700000000000ETH/USDT"},
		{"kraken", "1700000000000ETH/USDT"},
		{"coinbase", "1700000000000ETH/USDT"},
		{"someexchange", "1700000000000ETH/USDT"},
	}

	for _, tt := range tests {
		t.Run(tt.exchange, func(t *testing.T) {
			got := NewAdapter(tt.exchange).Sign(secret, timestamp, pair)
			want := sign(tt.message)
			if got != want {
				t.Errorf("signature mismatch: got %s, want %s", got, want)
			}
		})
	}
}

func TestNewAdapter_UnknownFallsBackToGeneric(t *testing.T) {
	adapter := NewAdapter("gemini")
	if adapter.Name() != "gemini" {
		t.Errorf("adapter name = %s, want gemini", adapter.Name())
	}
}
