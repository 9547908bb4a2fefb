package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pricingDomain "github.com/arbscan/arbscan/business/pricing/domain"
	"github.com/arbscan/arbscan/internal/apperror"
	"github.com/arbscan/arbscan/internal/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}

var _ logger.LoggerInterface = nopLogger{}

type stubCEX struct {
	quotes map[string]pricingDomain.ExchangeQuote
}

func (s *stubCEX) GetPrices(_ context.Context, _ pricingDomain.Pair) map[string]pricingDomain.ExchangeQuote {
	return s.quotes
}

type stubDEX struct {
	price decimal.Decimal
	err   error
}

func (s *stubDEX) GetPriceWithSlippage(_ context.Context, _ common.Address, _ decimal.Decimal) (decimal.Decimal, error) {
	return s.price, s.err
}

type stubLiquidity struct {
	depth decimal.Decimal
	err   error
}

func (s *stubLiquidity) GetLiquidity(_ context.Context, _ common.Address) (decimal.Decimal, error) {
	return s.depth, s.err
}

type stubVerifier struct {
	rejected map[string]bool // market price string -> reject
}

func (s *stubVerifier) VerifyPrice(_ context.Context, marketPrice decimal.Decimal, _ string) bool {
	return !s.rejected[marketPrice.String()]
}

type stubPredictor struct {
	seconds map[string]float64
	errs    map[string]error
}

func (s *stubPredictor) Predict(_ context.Context, exchange string, _ decimal.Decimal) (float64, error) {
	if err, ok := s.errs[exchange]; ok {
		return 0, err
	}
	if sec, ok := s.seconds[exchange]; ok {
		return sec, nil
	}
	return 1.0, nil
}

type stubSink struct {
	alerts []string
	err    error
}

func (s *stubSink) Enqueue(message string) error {
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, message)
	return nil
}

var ethToken = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

func defaultConfig() EngineConfig {
	return EngineConfig{
		QuoteSymbol:      "USDT",
		Notional:         decimal.NewFromInt(1000),
		MinProfit:        decimal.NewFromInt(50),
		MinLiquidity:     decimal.NewFromInt(10_000),
		MaxExecutionTime: 3,
		ScanInterval:     time.Second,
		Watchlist:        []WatchItem{{Symbol: "ETH", Token: ethToken}},
	}
}

func quoteFor(exchange string, price int64) pricingDomain.ExchangeQuote {
	return pricingDomain.NewExchangeQuote(exchange, pricingDomain.NewPair("ETH", "USDT"), decimal.NewFromInt(price))
}

func failedQuote(exchange string) pricingDomain.ExchangeQuote {
	return pricingDomain.NewFailedQuote(exchange, pricingDomain.NewPair("ETH", "USDT"),
		apperror.New(apperror.CodeRateLimitExceeded))
}

func newTestEngine(t *testing.T, cex *stubCEX, dex *stubDEX, liq *stubLiquidity, ver *stubVerifier, pred *stubPredictor, sink *stubSink) *Engine {
	t.Helper()
	e, err := NewEngine(cex, dex, liq, ver, pred, sink, defaultConfig(), nopLogger{})
	require.NoError(t, err)
	return e
}

func TestEngine_AnalyzePair_EmitsQualifyingOpportunity(t *testing.T) {
	// One healthy exchange at 3000, one rate limited. DEX at 2985 after
	// slippage, pool depth 50000. Profit on 1000 notional is 15000.
	cex := &stubCEX{quotes: map[string]pricingDomain.ExchangeQuote{
		"binance": quoteFor("binance", 3000),
		"kucoin":  failedQuote("kucoin"),
	}}
	dex := &stubDEX{price: decimal.NewFromInt(2985)}
	liq := &stubLiquidity{depth: decimal.NewFromInt(50_000)}
	ver := &stubVerifier{}
	pred := &stubPredictor{seconds: map[string]float64{"binance": 2.0}}
	sink := &stubSink{}

	e := newTestEngine(t, cex, dex, liq, ver, pred, sink)

	opps, err := e.AnalyzePair(context.Background(), "ETH", ethToken)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "binance", opp.Exchange)
	assert.True(t, opp.Profit.Equal(decimal.NewFromInt(15_000)), "profit = %s", opp.Profit)
	assert.Equal(t, 2.0, opp.ExecTime)
	assert.True(t, opp.Liquidity.Equal(decimal.NewFromInt(50_000)))

	require.Len(t, sink.alerts, 1)
	assert.Contains(t, sink.alerts[0], "BINANCE")
	assert.Contains(t, sink.alerts[0], "ETH/USDT")
}

func TestEngine_AnalyzePair_SkipsQuoteAsset(t *testing.T) {
	cex := &stubCEX{quotes: map[string]pricingDomain.ExchangeQuote{
		"binance": quoteFor("binance", 1),
	}}
	sink := &stubSink{}
	e := newTestEngine(t, cex, &stubDEX{price: decimal.NewFromInt(1)},
		&stubLiquidity{depth: decimal.NewFromInt(50_000)}, &stubVerifier{}, &stubPredictor{}, sink)

	opps, err := e.AnalyzePair(context.Background(), "USDT", ethToken)
	require.NoError(t, err)
	assert.Empty(t, opps)
	assert.Empty(t, sink.alerts)
}

func TestEngine_AnalyzePair_DEXUnavailableSkipsCycle(t *testing.T) {
	cex := &stubCEX{quotes: map[string]pricingDomain.ExchangeQuote{
		"binance": quoteFor("binance", 3000),
	}}
	dex := &stubDEX{err: fmt.Errorf("no pool")}
	sink := &stubSink{}
	e := newTestEngine(t, cex, dex,
		&stubLiquidity{depth: decimal.NewFromInt(50_000)}, &stubVerifier{}, &stubPredictor{}, sink)

	opps, err := e.AnalyzePair(context.Background(), "ETH", ethToken)
	require.NoError(t, err)
	assert.Empty(t, opps)
	assert.Empty(t, sink.alerts)
}

func TestEngine_AnalyzePair_LiquidityGate(t *testing.T) {
	cex := &stubCEX{quotes: map[string]pricingDomain.ExchangeQuote{
		"binance": quoteFor("binance", 3000),
	}}
	sink := &stubSink{}
	e := newTestEngine(t, cex, &stubDEX{price: decimal.NewFromInt(2985)},
		&stubLiquidity{depth: decimal.NewFromInt(500)}, &stubVerifier{}, &stubPredictor{}, sink)

	opps, err := e.AnalyzePair(context.Background(), "ETH", ethToken)
	require.NoError(t, err)
	assert.Empty(t, opps)
	assert.Empty(t, sink.alerts)
}

func TestEngine_AnalyzePair_LiquidityErrorPropagates(t *testing.T) {
	cex := &stubCEX{quotes: map[string]pricingDomain.ExchangeQuote{}}
	liq := &stubLiquidity{err: fmt.Errorf("rpc timeout")}
	e := newTestEngine(t, cex, &stubDEX{price: decimal.NewFromInt(2985)},
		liq, &stubVerifier{}, &stubPredictor{}, &stubSink{})

	_, err := e.AnalyzePair(context.Background(), "ETH", ethToken)
	require.Error(t, err)
}

func TestEngine_AnalyzePair_ExchangesAreIndependent(t *testing.T) {
	// kraken's quote fails oracle verification, coinbase's prediction
	// errors, binance over the time limit. kucoin alone qualifies.
	cex := &stubCEX{quotes: map[string]pricingDomain.ExchangeQuote{
		"binance":  quoteFor("binance", 3000),
		"coinbase": quoteFor("coinbase", 3001),
		"kraken":   quoteFor("kraken", 3002),
		"kucoin":   quoteFor("kucoin", 3003),
	}}
	dex := &stubDEX{price: decimal.NewFromInt(2985)}
	liq := &stubLiquidity{depth: decimal.NewFromInt(50_000)}
	ver := &stubVerifier{rejected: map[string]bool{"3002": true}}
	pred := &stubPredictor{
		seconds: map[string]float64{"binance": 10.0, "kucoin": 1.0},
		errs:    map[string]error{"coinbase": fmt.Errorf("gas oracle down")},
	}
	sink := &stubSink{}

	e := newTestEngine(t, cex, dex, liq, ver, pred, sink)

	opps, err := e.AnalyzePair(context.Background(), "ETH", ethToken)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "kucoin", opps[0].Exchange)
	require.Len(t, sink.alerts, 1)
}

func TestEngine_AnalyzePair_MinProfitGate(t *testing.T) {
	// Spread of 0.02 on 1000 notional: 20, below the 50 minimum.
	cex := &stubCEX{quotes: map[string]pricingDomain.ExchangeQuote{
		"binance": quoteFor("binance", 3000),
	}}
	dex := &stubDEX{price: decimal.NewFromFloat(2999.98)}
	sink := &stubSink{}

	e := newTestEngine(t, cex, dex,
		&stubLiquidity{depth: decimal.NewFromInt(50_000)}, &stubVerifier{}, &stubPredictor{}, sink)

	opps, err := e.AnalyzePair(context.Background(), "ETH", ethToken)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestEngine_AnalyzePair_EnqueueFailureDoesNotAbort(t *testing.T) {
	cex := &stubCEX{quotes: map[string]pricingDomain.ExchangeQuote{
		"binance": quoteFor("binance", 3000),
		"kucoin":  quoteFor("kucoin", 3001),
	}}
	dex := &stubDEX{price: decimal.NewFromInt(2985)}
	sink := &stubSink{err: apperror.New(apperror.CodeDispatcherStopped)}

	e := newTestEngine(t, cex, dex,
		&stubLiquidity{depth: decimal.NewFromInt(50_000)}, &stubVerifier{}, &stubPredictor{}, sink)

	opps, err := e.AnalyzePair(context.Background(), "ETH", ethToken)
	require.NoError(t, err)
	assert.Empty(t, opps)
	assert.Empty(t, sink.alerts)
}
