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
	"github.com/arbscan/arbscan/internal/asset"
	"github.com/arbscan/arbscan/internal/cache"
	"github.com/arbscan/arbscan/internal/logger"
)

const (
	tracerName = "github.com/arbscan/arbscan/business/pricing/infra/uniswap"
	meterName  = "github.com/arbscan/arbscan/business/pricing/infra/uniswap"

	decimalsCacheTTL = time.Hour
	pairCacheTTL     = 5 * time.Minute

	defaultTokenDecimals = 18
)

var zeroAddress = common.Address{}

// Ensure Resolver implements DEXProvider.
var _ app.DEXProvider = (*Resolver)(nil)

// ResolverConfig holds the resolver's contract addresses and haircut.
type ResolverConfig struct {
	Router        common.Address
	Factory       common.Address
	QuoteToken    common.Address // Stable quote asset (USDT)
	QuoteSymbol   string
	QuoteDecimals uint8
	MaxSlippage   decimal.Decimal // Haircut applied to every resolved price
}

// resolverMetrics holds OTEL metric instruments.
type resolverMetrics struct {
	quotes           metric.Int64Counter
	quoteErrors      metric.Int64Counter
	reserveFallbacks metric.Int64Counter
	quoteLatency     metric.Float64Histogram
}

// Resolver resolves the effective sale price of a token against the
// quote asset. Swap simulation through the router is the primary path;
// reserve arithmetic on the pair contract is the fallback.
type Resolver struct {
	config ResolverConfig
	chain  blockchainApp.ContractReader
	logger logger.LoggerInterface

	quoteAsset *asset.Asset

	decimalsCache *cache.TTL[uint8]
	pairCache     *cache.TTL[common.Address]

	tracer  trace.Tracer
	metrics *resolverMetrics
}

// NewResolver creates a Uniswap V2 price resolver.
func NewResolver(cfg ResolverConfig, chain blockchainApp.ContractReader, log logger.LoggerInterface) (*Resolver, error) {
	r := &Resolver{
		config:        cfg,
		chain:         chain,
		logger:        log,
		quoteAsset:    asset.MustNewToken(asset.ChainIDEthereum, cfg.QuoteToken, cfg.QuoteSymbol, cfg.QuoteSymbol, cfg.QuoteDecimals),
		decimalsCache: cache.New[uint8](decimalsCacheTTL),
		pairCache:     cache.New[common.Address](pairCacheTTL),
		tracer:        otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return r, nil
}

func (r *Resolver) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &resolverMetrics{}

	r.metrics.quotes, err = meter.Int64Counter(
		"dex_quotes_total",
		metric.WithDescription("Total DEX quote requests"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	r.metrics.quoteErrors, err = meter.Int64Counter(
		"dex_quote_errors_total",
		metric.WithDescription("Total DEX quote errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	r.metrics.reserveFallbacks, err = meter.Int64Counter(
		"dex_reserve_fallbacks_total",
		metric.WithDescription("Quotes served from reserve arithmetic"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	r.metrics.quoteLatency, err = meter.Float64Histogram(
		"dex_quote_latency_ms",
		metric.WithDescription("DEX quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetPriceWithSlippage returns the per-unit price in the quote asset for
// selling the given notional of token, with the slippage haircut applied.
func (r *Resolver) GetPriceWithSlippage(ctx context.Context, token common.Address, notional decimal.Decimal) (decimal.Decimal, error) {
	ctx, span := r.tracer.Start(ctx, "uniswap.get_price",
		trace.WithAttributes(
			attribute.String("token", token.Hex()),
			attribute.String("notional", notional.String()),
		),
	)
	defer span.End()

	start := time.Now()
	r.metrics.quotes.Add(ctx, 1)
	defer func() {
		r.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	tokenDecimals := r.tokenDecimals(ctx, token)

	// Amount of token being sold, in its smallest unit.
	tokenAsset := asset.NewAsset(
		asset.NewTokenAssetID(asset.ChainIDEthereum, token),
		token.Hex()[:8], tokenDecimals)
	amountIn, err := asset.ParseDecimal(tokenAsset, notional.Truncate(int32(tokenDecimals)))
	if err != nil {
		r.metrics.quoteErrors.Add(ctx, 1)
		return decimal.Zero, apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext("invalid notional"))
	}

	price, err := r.simulateSwap(ctx, token, amountIn.Raw())
	if err == nil {
		haircut := r.applySlippage(price)
		span.SetAttributes(attribute.String("price", haircut.String()))
		span.SetStatus(codes.Ok, "simulated")
		return haircut, nil
	}

	r.logger.Warn(ctx, "swap simulation failed, falling back to reserves",
		"token", token.Hex(), "error", err)
	span.AddEvent("simulation_failed", trace.WithAttributes(attribute.String("error", err.Error())))
	r.metrics.reserveFallbacks.Add(ctx, 1)

	price, err = r.priceFromReserves(ctx, token, tokenDecimals)
	if err != nil {
		r.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no price")
		return decimal.Zero, err
	}

	haircut := r.applySlippage(price)
	span.SetAttributes(attribute.String("price", haircut.String()))
	span.SetStatus(codes.Ok, "from_reserves")

	return haircut, nil
}

// simulateSwap asks the router for the output of selling amountIn of
// token into the quote asset.
func (r *Resolver) simulateSwap(ctx context.Context, token common.Address, amountIn *big.Int) (decimal.Decimal, error) {
	outputs, err := r.chain.Call(ctx, r.config.Router, RouterABI, "getAmountsOut",
		amountIn, []common.Address{token, r.config.QuoteToken})
	if err != nil {
		return decimal.Zero, apperror.Wrap(err, apperror.CodeSwapSimulationFailed, "getAmountsOut call failed")
	}

	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return decimal.Zero, apperror.New(apperror.CodeSwapSimulationFailed,
			apperror.WithContext("unexpected getAmountsOut output"))
	}

	out := asset.NewAmount(r.quoteAsset, amounts[1])

	return out.ToDecimal(), nil
}

// priceFromReserves derives the pool's spot price from its reserves.
func (r *Resolver) priceFromReserves(ctx context.Context, token common.Address, tokenDecimals uint8) (decimal.Decimal, error) {
	pairAddr, err := r.pairAddress(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}

	token0, err := r.chain.Call(ctx, pairAddr, PairABI, "token0")
	if err != nil {
		return decimal.Zero, err
	}

	reserves, err := r.chain.Call(ctx, pairAddr, PairABI, "getReserves")
	if err != nil {
		return decimal.Zero, err
	}

	reserve0, ok0 := reserves[0].(*big.Int)
	reserve1, ok1 := reserves[1].(*big.Int)
	first, okT := token0[0].(common.Address)
	if !ok0 || !ok1 || !okT {
		return decimal.Zero, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("unexpected pair contract outputs"))
	}

	tokenReserve, quoteReserve := reserve0, reserve1
	if first != token {
		tokenReserve, quoteReserve = reserve1, reserve0
	}

	if tokenReserve.Sign() == 0 {
		return decimal.Zero, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("empty token reserve in pair %s", pairAddr.Hex())))
	}

	quoteSide := decimal.NewFromBigInt(quoteReserve, -int32(r.quoteAsset.Decimals()))
	tokenSide := decimal.NewFromBigInt(tokenReserve, -int32(tokenDecimals))

	return quoteSide.Div(tokenSide), nil
}

// pairAddress resolves and caches the pool address for token/quote.
func (r *Resolver) pairAddress(ctx context.Context, token common.Address) (common.Address, error) {
	cacheKey := token.Hex() + ":" + r.config.QuoteToken.Hex()
	if addr, found := r.pairCache.Get(cacheKey); found {
		return addr, nil
	}

	outputs, err := r.chain.Call(ctx, r.config.Factory, FactoryABI, "getPair",
		token, r.config.QuoteToken)
	if err != nil {
		return zeroAddress, err
	}

	addr, ok := outputs[0].(common.Address)
	if !ok || addr == zeroAddress {
		return zeroAddress, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("no pool for %s against %s",
				token.Hex(), r.config.QuoteSymbol)))
	}

	r.pairCache.Set(cacheKey, addr)

	return addr, nil
}

// tokenDecimals reads and caches the token's decimals, defaulting to 18
// when the read fails.
func (r *Resolver) tokenDecimals(ctx context.Context, token common.Address) uint8 {
	key := token.Hex()
	if d, found := r.decimalsCache.Get(key); found {
		return d
	}

	outputs, err := r.chain.Call(ctx, token, ERC20ABI, "decimals")
	if err != nil {
		r.logger.Warn(ctx, "decimals read failed, using default",
			"token", key, "default", defaultTokenDecimals, "error", err)
		return defaultTokenDecimals
	}

	d, ok := outputs[0].(uint8)
	if !ok {
		return defaultTokenDecimals
	}

	r.decimalsCache.Set(key, d)

	return d
}

func (r *Resolver) applySlippage(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(r.config.MaxSlippage))
}
