package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateSpread(t *testing.T) {
	tests := []struct {
		name          string
		cexPrice      string
		dexPrice      string
		wantAbsolute  string
		wantPercent   string
		wantDirection SpreadDirection
	}{
		{
			name:          "equal_prices_no_spread",
			cexPrice:      "3400.00",
			dexPrice:      "3400.00",
			wantAbsolute:  "0",
			wantPercent:   "0",
			wantDirection: SpreadNone,
		},
		{
			name:          "dex_higher_1pct",
			cexPrice:      "3400.00",
			dexPrice:      "3434.00",
			wantAbsolute:  "34",
			wantPercent:   "1",
			wantDirection: SpreadCEXToDEX,
		},
		{
			name:          "dex_lower_1pct",
			cexPrice:      "100",
			dexPrice:      "99",
			wantAbsolute:  "-1",
			wantPercent:   "1",
			wantDirection: SpreadDEXToCEX,
		},
		{
			name:          "zero_cex_price_no_panic",
			cexPrice:      "0",
			dexPrice:      "3400.00",
			wantAbsolute:  "3400",
			wantPercent:   "0",
			wantDirection: SpreadCEXToDEX,
		},
		{
			name:          "zero_dex_price",
			cexPrice:      "3400.00",
			dexPrice:      "0",
			wantAbsolute:  "-3400",
			wantPercent:   "100",
			wantDirection: SpreadDEXToCEX,
		},
		{
			name:          "small_numbers",
			cexPrice:      "0.001",
			dexPrice:      "0.00101",
			wantAbsolute:  "0.00001",
			wantPercent:   "1",
			wantDirection: SpreadCEXToDEX,
		},
		{
			name:          "half_percent_down",
			cexPrice:      "3000.00",
			dexPrice:      "2985.00",
			wantAbsolute:  "-15",
			wantPercent:   "0.5",
			wantDirection: SpreadDEXToCEX,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cex := decimal.RequireFromString(tt.cexPrice)
			dex := decimal.RequireFromString(tt.dexPrice)

			spread := CalculateSpread(cex, dex)

			wantAbsolute := decimal.RequireFromString(tt.wantAbsolute)
			if !spread.Absolute.Equal(wantAbsolute) {
				t.Errorf("Absolute = %s, want %s", spread.Absolute, wantAbsolute)
			}

			wantPercent := decimal.RequireFromString(tt.wantPercent)
			if !spread.Percent.Equal(wantPercent) {
				t.Errorf("Percent = %s, want %s", spread.Percent, wantPercent)
			}

			if spread.Direction != tt.wantDirection {
				t.Errorf("Direction = %v, want %v", spread.Direction, tt.wantDirection)
			}
		})
	}
}

func TestCalculateSpread_PercentIsAbsolute(t *testing.T) {
	// The percent spread never carries a sign regardless of direction.
	up := CalculateSpread(decimal.RequireFromString("100"), decimal.RequireFromString("101"))
	down := CalculateSpread(decimal.RequireFromString("100"), decimal.RequireFromString("99"))

	if !up.Percent.Equal(down.Percent) {
		t.Errorf("percent differs by direction: up=%s down=%s", up.Percent, down.Percent)
	}
	if up.Percent.IsNegative() || down.Percent.IsNegative() {
		t.Errorf("percent must not be negative: up=%s down=%s", up.Percent, down.Percent)
	}
}

func TestEstimateProfit(t *testing.T) {
	tests := []struct {
		name     string
		cexPrice string
		dexPrice string
		notional string
		want     string
	}{
		{"one_unit_gap", "100", "99", "1000", "1000"},
		{"inverted_gap_same_profit", "99", "100", "1000", "1000"},
		{"eth_example", "3000", "2985", "1000", "15000"},
		{"no_gap", "2500", "2500", "1000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateProfit(
				decimal.RequireFromString(tt.cexPrice),
				decimal.RequireFromString(tt.dexPrice),
				decimal.RequireFromString(tt.notional),
			)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("EstimateProfit = %s, want %s", got, want)
			}
		})
	}
}

func BenchmarkCalculateSpread(b *testing.B) {
	cex := decimal.RequireFromString("3456.789")
	dex := decimal.RequireFromString("3460.123")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CalculateSpread(cex, dex)
	}
}
