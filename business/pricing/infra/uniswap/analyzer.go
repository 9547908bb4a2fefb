package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchainApp "github.com/arbscan/arbscan/business/blockchain/app"
	"github.com/arbscan/arbscan/business/pricing/app"
	"github.com/arbscan/arbscan/internal/apperror"
	"github.com/arbscan/arbscan/internal/cache"
	"github.com/arbscan/arbscan/internal/logger"
)

const liquidityCacheTTL = 2 * time.Minute

// Ensure Analyzer implements LiquidityAnalyzer.
var _ app.LiquidityAnalyzer = (*Analyzer)(nil)

// AnalyzerConfig holds the analyzer's contract addresses.
type AnalyzerConfig struct {
	Factory       common.Address
	QuoteToken    common.Address
	QuoteDecimals uint8
}

// analyzerMetrics holds OTEL metric instruments.
type analyzerMetrics struct {
	depthReads  metric.Int64Counter
	depthErrors metric.Int64Counter
	cacheHits   metric.Int64Counter
}

// Analyzer measures the quote-asset depth of a token's pool. Tokens
// without a pool report zero depth rather than an error.
type Analyzer struct {
	config AnalyzerConfig
	chain  blockchainApp.ContractReader
	logger logger.LoggerInterface

	depthCache *cache.TTL[decimal.Decimal]

	tracer  trace.Tracer
	metrics *analyzerMetrics
}

// NewAnalyzer creates a pool depth analyzer.
func NewAnalyzer(cfg AnalyzerConfig, chain blockchainApp.ContractReader, log logger.LoggerInterface) (*Analyzer, error) {
	a := &Analyzer{
		config:     cfg,
		chain:      chain,
		logger:     log,
		depthCache: cache.New[decimal.Decimal](liquidityCacheTTL),
		tracer:     otel.Tracer(tracerName),
	}

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return a, nil
}

func (a *Analyzer) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &analyzerMetrics{}

	a.metrics.depthReads, err = meter.Int64Counter(
		"liquidity_depth_reads_total",
		metric.WithDescription("Total pool depth reads"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return err
	}

	a.metrics.depthErrors, err = meter.Int64Counter(
		"liquidity_depth_errors_total",
		metric.WithDescription("Total pool depth read errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	a.metrics.cacheHits, err = meter.Int64Counter(
		"liquidity_cache_hits_total",
		metric.WithDescription("Depth cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetLiquidity returns the quote-asset reserve of the token's pool.
func (a *Analyzer) GetLiquidity(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	ctx, span := a.tracer.Start(ctx, "liquidity.get_depth",
		trace.WithAttributes(attribute.String("token", token.Hex())),
	)
	defer span.End()

	cacheKey := token.Hex() + ":" + a.config.QuoteToken.Hex()
	if depth, found := a.depthCache.Get(cacheKey); found {
		a.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return depth, nil
	}

	a.metrics.depthReads.Add(ctx, 1)

	outputs, err := a.chain.Call(ctx, a.config.Factory, FactoryABI, "getPair",
		token, a.config.QuoteToken)
	if err != nil {
		a.metrics.depthErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "pair lookup failed")
		return decimal.Zero, err
	}

	pairAddr, ok := outputs[0].(common.Address)
	if !ok {
		return decimal.Zero, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("unexpected getPair output"))
	}

	// No pool: zero depth by contract, not an error.
	if pairAddr == zeroAddress {
		span.AddEvent("no_pool")
		a.depthCache.Set(cacheKey, decimal.Zero)
		return decimal.Zero, nil
	}

	token0, err := a.chain.Call(ctx, pairAddr, PairABI, "token0")
	if err != nil {
		a.metrics.depthErrors.Add(ctx, 1)
		span.RecordError(err)
		return decimal.Zero, err
	}

	reserves, err := a.chain.Call(ctx, pairAddr, PairABI, "getReserves")
	if err != nil {
		a.metrics.depthErrors.Add(ctx, 1)
		span.RecordError(err)
		return decimal.Zero, err
	}

	reserve0, ok0 := reserves[0].(*big.Int)
	reserve1, ok1 := reserves[1].(*big.Int)
	first, okT := token0[0].(common.Address)
	if !ok0 || !ok1 || !okT {
		return decimal.Zero, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("unexpected pair contract outputs"))
	}

	// A pool drained on either side is untradeable regardless of what
	// the other reserve holds.
	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		a.depthCache.Set(cacheKey, decimal.Zero)
		span.AddEvent("empty_reserve")
		return decimal.Zero, nil
	}

	quoteReserve := reserve1
	if first == a.config.QuoteToken {
		quoteReserve = reserve0
	}

	depth := decimal.NewFromBigInt(quoteReserve, -int32(a.config.QuoteDecimals))

	a.depthCache.Set(cacheKey, depth)

	span.SetAttributes(attribute.String("depth", depth.String()))
	span.SetStatus(codes.Ok, "read")

	return depth, nil
}
