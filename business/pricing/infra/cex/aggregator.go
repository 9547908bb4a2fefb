package cex

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbscan/arbscan/business/pricing/app"
	"github.com/arbscan/arbscan/business/pricing/domain"
	"github.com/arbscan/arbscan/internal/apperror"
	"github.com/arbscan/arbscan/internal/cache"
	"github.com/arbscan/arbscan/internal/config"
	"github.com/arbscan/arbscan/internal/httpclient"
	"github.com/arbscan/arbscan/internal/logger"
	"github.com/arbscan/arbscan/internal/ratelimit"
)

const (
	tracerName = "github.com/arbscan/arbscan/business/pricing/infra/cex"
	meterName  = "github.com/arbscan/arbscan/business/pricing/infra/cex"

	quoteCacheTTL   = 10 * time.Second
	fallbackRateRPS = 10
)

// Ensure Aggregator implements CEXProvider.
var _ app.CEXProvider = (*Aggregator)(nil)

// aggregatorMetrics holds OTEL metric instruments.
type aggregatorMetrics struct {
	fetches     metric.Int64Counter
	fetchErrors metric.Int64Counter
	rateLimited metric.Int64Counter
	cacheHits   metric.Int64Counter
}

// Aggregator fans a pair out to every configured exchange and collects
// one quote per exchange. A rate-limited or failed exchange yields a
// failed quote without touching the rest.
type Aggregator struct {
	exchanges map[string]config.ExchangeConfig
	adapters  map[string]Adapter
	client    httpclient.Client
	limits    *ratelimit.Registry
	quotes    *cache.TTL[decimal.Decimal]
	logger    logger.LoggerInterface

	// now is a test hook for the signing timestamp.
	now func() time.Time

	tracer  trace.Tracer
	metrics *aggregatorMetrics
}

// NewAggregator creates an aggregator over the configured exchanges.
func NewAggregator(exchanges map[string]config.ExchangeConfig, client httpclient.Client, log logger.LoggerInterface) (*Aggregator, error) {
	rates := make(map[string]float64, len(exchanges))
	adapters := make(map[string]Adapter, len(exchanges))
	for name, cfg := range exchanges {
		rates[name] = cfg.RateLimit
		adapters[name] = NewAdapter(name)
	}

	a := &Aggregator{
		exchanges: exchanges,
		adapters:  adapters,
		client:    client,
		limits:    ratelimit.NewRegistry(rates, fallbackRateRPS),
		quotes:    cache.New[decimal.Decimal](quoteCacheTTL),
		logger:    log,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &aggregatorMetrics{}

	a.metrics.fetches, err = meter.Int64Counter(
		"cex_price_fetches_total",
		metric.WithDescription("Total CEX price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	a.metrics.fetchErrors, err = meter.Int64Counter(
		"cex_price_fetch_errors_total",
		metric.WithDescription("Total CEX price fetch errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	a.metrics.rateLimited, err = meter.Int64Counter(
		"cex_rate_limited_total",
		metric.WithDescription("Fetches skipped by the local rate limiter"),
		metric.WithUnit("{skip}"),
	)
	if err != nil {
		return err
	}

	a.metrics.cacheHits, err = meter.Int64Counter(
		"cex_quote_cache_hits_total",
		metric.WithDescription("Quote cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetPrices fetches the pair price from every configured exchange.
func (a *Aggregator) GetPrices(ctx context.Context, pair domain.Pair) map[string]domain.ExchangeQuote {
	ctx, span := a.tracer.Start(ctx, "cex.get_prices",
		trace.WithAttributes(attribute.String("pair", pair.String())),
	)
	defer span.End()

	results := make(map[string]domain.ExchangeQuote, len(a.exchanges))

	for _, name := range a.exchangeNames() {
		// A fresh cached quote never consumes a rate-limit token.
		if price, found := a.quotes.Get(name + ":" + pair.String()); found {
			a.metrics.cacheHits.Add(ctx, 1)
			results[name] = domain.NewExchangeQuote(name, pair, price)
			continue
		}

		if !a.limits.Allow(name) {
			a.metrics.rateLimited.Add(ctx, 1,
				metric.WithAttributes(attribute.String("exchange", name)))
			results[name] = domain.NewFailedQuote(name, pair,
				apperror.New(apperror.CodeRateLimitExceeded,
					apperror.WithContext(fmt.Sprintf("local rate limit hit for %s", name))))
			continue
		}

		price, err := a.fetchPrice(ctx, name, pair)
		if err != nil {
			a.metrics.fetchErrors.Add(ctx, 1,
				metric.WithAttributes(attribute.String("exchange", name)))
			a.logger.Error(ctx, "cex price fetch failed",
				"exchange", name, "pair", pair.String(), "error", err)
			results[name] = domain.NewFailedQuote(name, pair, err)
			continue
		}

		results[name] = domain.NewExchangeQuote(name, pair, price)
	}

	span.SetAttributes(attribute.Int("exchanges", len(results)))
	span.SetStatus(codes.Ok, "fetched")

	return results
}

// fetchPrice fetches a single exchange price, serving from cache when fresh.
func (a *Aggregator) fetchPrice(ctx context.Context, exchange string, pair domain.Pair) (decimal.Decimal, error) {
	ctx, span := a.tracer.Start(ctx, "cex.fetch_price",
		trace.WithAttributes(
			attribute.String("exchange", exchange),
			attribute.String("pair", pair.String()),
		),
	)
	defer span.End()

	a.metrics.fetches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("exchange", exchange)))

	cfg, ok := a.exchanges[exchange]
	if !ok {
		return decimal.Zero, apperror.New(apperror.CodeExchangeNotConfigured,
			apperror.WithContext(fmt.Sprintf("exchange %s not configured", exchange)))
	}
	if cfg.URL == "" {
		return decimal.Zero, apperror.New(apperror.CodeExchangeNotConfigured,
			apperror.WithContext(fmt.Sprintf("url not configured for exchange %s", exchange)))
	}

	url := strings.ReplaceAll(cfg.URL, "{pair}", pair.Symbol())

	req := a.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("exchange", exchange)),
	)

	if cfg.AuthRequired {
		timestamp := strconv.FormatInt(a.now().UnixMilli(), 10)
		signature := a.adapters[exchange].Sign(cfg.APISecret, timestamp, pair)
		req.SetHeaders(map[string]string{
			"API-Key":       cfg.APIKey,
			"API-Timestamp": timestamp,
			"API-Signature": signature,
		})
	}

	resp, err := req.Get(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return decimal.Zero, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s request failed", exchange)))
	}
	if resp.IsError() {
		span.SetStatus(codes.Error, "http error")
		return decimal.Zero, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithContext(fmt.Sprintf("%s returned %d: %s", exchange, resp.StatusCode, resp.String())))
	}

	price, err := a.adapters[exchange].ExtractPrice(resp.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extract failed")
		return decimal.Zero, err
	}

	a.quotes.Set(exchange+":"+pair.String(), price)

	span.SetAttributes(attribute.String("price", price.String()))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// exchangeNames returns the configured exchanges in stable order.
func (a *Aggregator) exchangeNames() []string {
	names := make([]string, 0, len(a.exchanges))
	for name := range a.exchanges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
