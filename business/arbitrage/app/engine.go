package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbscan/arbscan/business/arbitrage/domain"
	pricingApp "github.com/arbscan/arbscan/business/pricing/app"
	pricingDomain "github.com/arbscan/arbscan/business/pricing/domain"
	"github.com/arbscan/arbscan/internal/logger"
)

const (
	tracerName = "github.com/arbscan/arbscan/business/arbitrage/app"
	meterName  = "github.com/arbscan/arbscan/business/arbitrage/app"
)

// WatchItem pairs a token symbol with its contract address.
type WatchItem struct {
	Symbol string
	Token  common.Address
}

// EngineConfig holds the decision thresholds and scan cadence.
type EngineConfig struct {
	QuoteSymbol      string
	Notional         decimal.Decimal // reference trade size in quote-asset units
	MinProfit        decimal.Decimal
	MinLiquidity     decimal.Decimal
	MaxExecutionTime float64 // seconds
	ScanInterval     time.Duration
	Watchlist        []WatchItem
}

// engineMetrics holds OTEL metric instruments.
type engineMetrics struct {
	cycles        metric.Int64Counter
	opportunities metric.Int64Counter
	gateSkips     metric.Int64Counter
}

// Engine runs the analysis cycle: pull prices from every source, apply
// the gates, and push qualifying opportunities into the alert sink.
type Engine struct {
	cex       pricingApp.CEXProvider
	dex       pricingApp.DEXProvider
	liquidity pricingApp.LiquidityAnalyzer
	verifier  pricingApp.PriceVerifier
	predictor ExecutionPredictor
	sink      AlertSink

	config EngineConfig
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *engineMetrics
}

// NewEngine wires the engine with its collaborators.
func NewEngine(
	cex pricingApp.CEXProvider,
	dex pricingApp.DEXProvider,
	liquidity pricingApp.LiquidityAnalyzer,
	verifier pricingApp.PriceVerifier,
	predictor ExecutionPredictor,
	sink AlertSink,
	config EngineConfig,
	log logger.LoggerInterface,
) (*Engine, error) {
	e := &Engine{
		cex:       cex,
		dex:       dex,
		liquidity: liquidity,
		verifier:  verifier,
		predictor: predictor,
		sink:      sink,
		config:    config,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.cycles, err = meter.Int64Counter(
		"analysis_cycles_total",
		metric.WithDescription("Total analysis cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return err
	}

	e.metrics.opportunities, err = meter.Int64Counter(
		"opportunities_total",
		metric.WithDescription("Total qualifying opportunities emitted"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	e.metrics.gateSkips, err = meter.Int64Counter(
		"gate_skips_total",
		metric.WithDescription("Exchange candidates dropped by a gate"),
		metric.WithUnit("{skip}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Run scans the watchlist until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info(ctx, "engine started",
		"watchlist", len(e.config.Watchlist),
		"interval", e.config.ScanInterval.String())

	ticker := time.NewTicker(e.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info(ctx, "engine stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			for _, item := range e.config.Watchlist {
				if _, err := e.AnalyzePair(ctx, item.Symbol, item.Token); err != nil {
					e.logger.Error(ctx, "analysis cycle failed",
						"symbol", item.Symbol, "error", err)
				}
			}
		}
	}
}

// AnalyzePair runs one analysis cycle for a (symbol, token) pair and
// returns the opportunities it emitted. Gate failures on one exchange
// never block evaluation of the others.
func (e *Engine) AnalyzePair(ctx context.Context, symbol string, token common.Address) ([]domain.Opportunity, error) {
	// The quote asset never arbitrages against itself.
	if symbol == e.config.QuoteSymbol {
		return nil, nil
	}

	ctx, span := e.tracer.Start(ctx, "engine.analyze_pair",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("token", token.Hex()),
		),
	)
	defer span.End()

	e.metrics.cycles.Add(ctx, 1)

	pair := pricingDomain.NewPair(symbol, e.config.QuoteSymbol)

	dexPrice, err := e.dex.GetPriceWithSlippage(ctx, token, e.config.Notional)
	if err != nil {
		span.AddEvent("dex_price_unavailable")
		e.logger.Warn(ctx, "dex price unavailable, skipping cycle",
			"symbol", symbol, "error", err)
		return nil, nil
	}

	liquidity, err := e.liquidity.GetLiquidity(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if liquidity.LessThan(e.config.MinLiquidity) {
		span.AddEvent("insufficient_liquidity",
			trace.WithAttributes(attribute.String("depth", liquidity.String())))
		e.logger.Debug(ctx, "liquidity below minimum, skipping cycle",
			"symbol", symbol, "depth", liquidity.String())
		return nil, nil
	}

	quotes := e.cex.GetPrices(ctx, pair)

	var opportunities []domain.Opportunity

	for _, exchange := range sortedExchanges(quotes) {
		quote := quotes[exchange]
		if !quote.Success() {
			continue
		}

		opp, ok := e.evaluateExchange(ctx, pair, quote, dexPrice, liquidity)
		if !ok {
			continue
		}

		if err := e.sink.Enqueue(opp.FormatAlert()); err != nil {
			e.logger.Error(ctx, "alert enqueue failed",
				"symbol", symbol, "exchange", exchange, "error", err)
			continue
		}

		e.metrics.opportunities.Add(ctx, 1,
			metric.WithAttributes(attribute.String("exchange", exchange)))
		opportunities = append(opportunities, opp)
	}

	span.SetAttributes(attribute.Int("opportunities", len(opportunities)))
	span.SetStatus(codes.Ok, "analyzed")

	return opportunities, nil
}

// evaluateExchange applies the per-exchange gates to one quote.
func (e *Engine) evaluateExchange(ctx context.Context, pair pricingDomain.Pair, quote pricingDomain.ExchangeQuote, dexPrice, liquidity decimal.Decimal) (domain.Opportunity, bool) {
	exchange := quote.Exchange

	if !e.verifier.VerifyPrice(ctx, quote.Price, pair.OracleKey()) {
		e.recordSkip(ctx, exchange, "oracle_verification")
		return domain.Opportunity{}, false
	}

	profit := pricingDomain.EstimateProfit(quote.Price, dexPrice, e.config.Notional)
	if profit.LessThan(e.config.MinProfit) {
		e.recordSkip(ctx, exchange, "min_profit")
		return domain.Opportunity{}, false
	}

	execTime, err := e.predictor.Predict(ctx, exchange, e.config.Notional)
	if err != nil {
		e.recordSkip(ctx, exchange, "predictor_error")
		e.logger.Warn(ctx, "execution time prediction failed",
			"exchange", exchange, "error", err)
		return domain.Opportunity{}, false
	}
	if execTime > e.config.MaxExecutionTime {
		e.recordSkip(ctx, exchange, "max_execution_time")
		return domain.Opportunity{}, false
	}

	opp := domain.NewOpportunity(pair, exchange, quote.Price, dexPrice, profit, liquidity, execTime)

	e.logger.Info(ctx, "opportunity detected",
		"pair", pair.String(),
		"exchange", exchange,
		"cex_price", quote.Price.String(),
		"dex_price", dexPrice.String(),
		"profit", profit.String(),
		"exec_time", execTime)

	return opp, true
}

func (e *Engine) recordSkip(ctx context.Context, exchange, gate string) {
	e.metrics.gateSkips.Add(ctx, 1, metric.WithAttributes(
		attribute.String("exchange", exchange),
		attribute.String("gate", gate),
	))
}

func sortedExchanges(quotes map[string]pricingDomain.ExchangeQuote) []string {
	names := make([]string, 0, len(quotes))
	for name := range quotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
