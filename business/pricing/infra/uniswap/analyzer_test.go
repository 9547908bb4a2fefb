package uniswap

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func newTestAnalyzer(t *testing.T, chain *fakeChain) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(AnalyzerConfig{
		Factory:       common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		QuoteToken:    testQuote,
		QuoteDecimals: 6,
	}, chain, nopLogger{})
	if err != nil {
		t.Fatalf("create analyzer: %v", err)
	}
	return a
}

func TestAnalyzer_GetLiquidity(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["getPair"] = []any{testPool}
	chain.outputs["token0"] = []any{testToken}
	chain.outputs["getReserves"] = []any{eth(100), usdt(300_000), uint32(0)}

	a := newTestAnalyzer(t, chain)

	depth, err := a.GetLiquidity(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := decimal.NewFromInt(300_000); !depth.Equal(want) {
		t.Errorf("depth = %s, want %s", depth, want)
	}
}

func TestAnalyzer_GetLiquidity_QuoteIsToken0(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["getPair"] = []any{testPool}
	chain.outputs["token0"] = []any{testQuote}
	chain.outputs["getReserves"] = []any{usdt(250_000), eth(80), uint32(0)}

	a := newTestAnalyzer(t, chain)

	depth, err := a.GetLiquidity(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := decimal.NewFromInt(250_000); !depth.Equal(want) {
		t.Errorf("depth = %s, want %s", depth, want)
	}
}

func TestAnalyzer_GetLiquidity_NoPoolIsZeroNotError(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["getPair"] = []any{zeroAddress}

	a := newTestAnalyzer(t, chain)

	depth, err := a.GetLiquidity(context.Background(), testToken)
	if err != nil {
		t.Fatalf("missing pool must not error: %v", err)
	}
	if !depth.IsZero() {
		t.Errorf("depth = %s, want 0", depth)
	}
}

func TestAnalyzer_GetLiquidity_EmptyReserveIsZero(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["getPair"] = []any{testPool}
	chain.outputs["token0"] = []any{testToken}
	// Token side drained: depth is zero even though quote reserve is not.
	chain.outputs["getReserves"] = []any{eth(0), usdt(300_000), uint32(0)}

	a := newTestAnalyzer(t, chain)

	depth, err := a.GetLiquidity(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !depth.IsZero() {
		t.Errorf("depth = %s, want 0", depth)
	}
}

func TestAnalyzer_GetLiquidity_CachesDepth(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["getPair"] = []any{testPool}
	chain.outputs["token0"] = []any{testToken}
	chain.outputs["getReserves"] = []any{eth(100), usdt(300_000), uint32(0)}

	a := newTestAnalyzer(t, chain)

	ctx := context.Background()
	if _, err := a.GetLiquidity(ctx, testToken); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := a.GetLiquidity(ctx, testToken); err != nil {
		t.Fatalf("second read: %v", err)
	}

	if n := chain.calls["getReserves"]; n != 1 {
		t.Errorf("getReserves calls = %d, want 1 (second read served from cache)", n)
	}
}

func TestAnalyzer_GetLiquidity_PairLookupError(t *testing.T) {
	chain := newFakeChain()
	chain.errs["getPair"] = fmt.Errorf("rpc timeout")

	a := newTestAnalyzer(t, chain)

	if _, err := a.GetLiquidity(context.Background(), testToken); err == nil {
		t.Fatal("expected error when the factory call fails")
	}
}
