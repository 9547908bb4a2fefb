package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/arbscan/arbscan/internal/apperror"
	"github.com/arbscan/arbscan/internal/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}

var _ logger.LoggerInterface = nopLogger{}

// fakeChain answers contract calls by method name.
type fakeChain struct {
	outputs map[string][]any
	errs    map[string]error
	calls   map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		outputs: make(map[string][]any),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeChain) Call(_ context.Context, _ common.Address, _, method string, _ ...any) ([]any, error) {
	f.calls[method]++
	if err, ok := f.errs[method]; ok {
		return nil, err
	}
	out, ok := f.outputs[method]
	if !ok {
		return nil, fmt.Errorf("unexpected call to %s", method)
	}
	return out, nil
}

var (
	testToken = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testQuote = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	testPool  = common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852")
)

func newTestResolver(t *testing.T, chain *fakeChain) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverConfig{
		Router:        common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Factory:       common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		QuoteToken:    testQuote,
		QuoteSymbol:   "USDT",
		QuoteDecimals: 6,
		MaxSlippage:   decimal.NewFromFloat(0.01),
	}, chain, nopLogger{})
	if err != nil {
		t.Fatalf("create resolver: %v", err)
	}
	return r
}

func usdt(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), big.NewInt(1_000_000))
}

func eth(units int64) *big.Int {
	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(units), wei)
}

func TestResolver_GetPriceWithSlippage_SimulatedSwap(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["decimals"] = []any{uint8(18)}
	// Selling 1 token returns 3000 USDT.
	chain.outputs["getAmountsOut"] = []any{[]*big.Int{eth(1), usdt(3000)}}

	r := newTestResolver(t, chain)

	price, err := r.GetPriceWithSlippage(context.Background(), testToken, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3000 with the 1% haircut.
	if want := decimal.NewFromInt(2970); !price.Equal(want) {
		t.Errorf("price = %s, want %s", price, want)
	}
}

func TestResolver_GetPriceWithSlippage_ReserveFallback(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["decimals"] = []any{uint8(18)}
	chain.errs["getAmountsOut"] = fmt.Errorf("execution reverted")
	chain.outputs["getPair"] = []any{testPool}
	chain.outputs["token0"] = []any{testToken}
	// 100 tokens against 300000 USDT: spot price 3000.
	chain.outputs["getReserves"] = []any{eth(100), usdt(300_000), uint32(0)}

	r := newTestResolver(t, chain)

	price, err := r.GetPriceWithSlippage(context.Background(), testToken, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := decimal.NewFromInt(2970); !price.Equal(want) {
		t.Errorf("price = %s, want %s", price, want)
	}
}

func TestResolver_GetPriceWithSlippage_ReserveFallback_QuoteIsToken0(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["decimals"] = []any{uint8(18)}
	chain.errs["getAmountsOut"] = fmt.Errorf("execution reverted")
	chain.outputs["getPair"] = []any{testPool}
	chain.outputs["token0"] = []any{testQuote}
	// Reserves flipped: quote side first.
	chain.outputs["getReserves"] = []any{usdt(300_000), eth(100), uint32(0)}

	r := newTestResolver(t, chain)

	price, err := r.GetPriceWithSlippage(context.Background(), testToken, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := decimal.NewFromInt(2970); !price.Equal(want) {
		t.Errorf("price = %s, want %s", price, want)
	}
}

func TestResolver_GetPriceWithSlippage_NoPool(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["decimals"] = []any{uint8(18)}
	chain.errs["getAmountsOut"] = fmt.Errorf("execution reverted")
	chain.outputs["getPair"] = []any{zeroAddress}

	r := newTestResolver(t, chain)

	_, err := r.GetPriceWithSlippage(context.Background(), testToken, decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("expected error for missing pool")
	}
	if code := apperror.GetCode(err); code != apperror.CodePoolNotFound {
		t.Errorf("error code = %s, want %s", code, apperror.CodePoolNotFound)
	}
}

func TestResolver_GetPriceWithSlippage_EmptyReserve(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["decimals"] = []any{uint8(18)}
	chain.errs["getAmountsOut"] = fmt.Errorf("execution reverted")
	chain.outputs["getPair"] = []any{testPool}
	chain.outputs["token0"] = []any{testToken}
	chain.outputs["getReserves"] = []any{big.NewInt(0), usdt(300_000), uint32(0)}

	r := newTestResolver(t, chain)

	_, err := r.GetPriceWithSlippage(context.Background(), testToken, decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("expected error for empty reserve")
	}
	if code := apperror.GetCode(err); code != apperror.CodeInsufficientLiquidity {
		t.Errorf("error code = %s, want %s", code, apperror.CodeInsufficientLiquidity)
	}
}

func TestResolver_TokenDecimals_DefaultOnReadFailure(t *testing.T) {
	chain := newFakeChain()
	chain.errs["decimals"] = fmt.Errorf("not a contract")
	// Simulation succeeds: 1 token (assumed 18 decimals) sells for 2000 USDT.
	chain.outputs["getAmountsOut"] = []any{[]*big.Int{eth(1), usdt(2000)}}

	r := newTestResolver(t, chain)

	price, err := r.GetPriceWithSlippage(context.Background(), testToken, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := decimal.NewFromInt(1980); !price.Equal(want) {
		t.Errorf("price = %s, want %s", price, want)
	}
}

func TestResolver_TokenDecimals_Cached(t *testing.T) {
	chain := newFakeChain()
	chain.outputs["decimals"] = []any{uint8(6)}
	chain.outputs["getAmountsOut"] = []any{[]*big.Int{usdt(1), usdt(3000)}}

	r := newTestResolver(t, chain)

	ctx := context.Background()
	if _, err := r.GetPriceWithSlippage(ctx, testToken, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("first quote: %v", err)
	}
	if _, err := r.GetPriceWithSlippage(ctx, testToken, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("second quote: %v", err)
	}

	if n := chain.calls["decimals"]; n != 1 {
		t.Errorf("decimals calls = %d, want 1 (second read served from cache)", n)
	}
}
