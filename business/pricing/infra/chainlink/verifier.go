// Package chainlink verifies market prices against Chainlink feeds.
package chainlink

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

const (
	tracerName = "github.com/arbscan/arbscan/business/pricing/infra/chainlink"
	meterName  = "github.com/arbscan/arbscan/business/pricing/infra/chainlink"

	priceCacheTTL = 60 * time.Second

	// Readings older than this are unusable regardless of cache freshness.
	maxReadingAge = 15 * time.Minute

	defaultFeedDecimals = 8
)

// AggregatorABI covers the read surface of a Chainlink price feed.
const AggregatorABI = `[
  {
    "inputs": [],
    "name": "decimals",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "latestRoundData",
    "outputs": [
      {"internalType": "uint80", "name": "roundId", "type": "uint80"},
      {"internalType": "int256", "name": "answer", "type": "int256"},
      {"internalType": "uint256", "name": "startedAt", "type": "uint256"},
      {"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
      {"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

// Ensure Verifier implements PriceVerifier.
var _ app.PriceVerifier = (*Verifier)(nil)

// VerifierConfig holds the feed registry and deviation tolerance.
type VerifierConfig struct {
	Feeds        map[string]common.Address // pair key ("ETH/USD") to feed address
	MaxDeviation decimal.Decimal           // relative deviation tolerance
}

// verifierMetrics holds OTEL metric instruments.
type verifierMetrics struct {
	verifications metric.Int64Counter
	deviations    metric.Int64Counter
	staleReadings metric.Int64Counter
	feedErrors    metric.Int64Counter
}

// Verifier cross-checks market prices against Chainlink reference feeds.
//
// The pass/fail policy is asymmetric on purpose: a missing feed or a
// stale reading skips verification (pass), while a runtime failure
// during fetch or comparison rejects the price (fail).
type Verifier struct {
	config VerifierConfig
	chain  blockchainApp.ContractReader
	logger logger.LoggerInterface

	// Feed decimals are fixed per feed, resolved once at startup.
	decimals map[string]uint8

	prices *cache.TTL[decimal.Decimal]

	// now is a test hook for the staleness check.
	now func() time.Time

	tracer  trace.Tracer
	metrics *verifierMetrics
}

// NewVerifier creates a verifier and resolves each feed's decimals.
// Feeds whose decimals cannot be read fall back to the Chainlink
// default of 8.
func NewVerifier(ctx context.Context, cfg VerifierConfig, chain blockchainApp.ContractReader, log logger.LoggerInterface) (*Verifier, error) {
	v := &Verifier{
		config:   cfg,
		chain:    chain,
		logger:   log,
		decimals: make(map[string]uint8, len(cfg.Feeds)),
		prices:   cache.New[decimal.Decimal](priceCacheTTL),
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}

	if err := v.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	for pair, feed := range cfg.Feeds {
		outputs, err := chain.Call(ctx, feed, AggregatorABI, "decimals")
		if err != nil {
			log.Warn(ctx, "feed decimals read failed, using default",
				"pair", pair, "feed", feed.Hex(), "default", defaultFeedDecimals, "error", err)
			v.decimals[pair] = defaultFeedDecimals
			continue
		}
		if d, ok := outputs[0].(uint8); ok {
			v.decimals[pair] = d
		} else {
			v.decimals[pair] = defaultFeedDecimals
		}
		log.Info(ctx, "chainlink feed initialized", "pair", pair, "feed", feed.Hex())
	}

	return v, nil
}

func (v *Verifier) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	v.metrics = &verifierMetrics{}

	v.metrics.verifications, err = meter.Int64Counter(
		"oracle_verifications_total",
		metric.WithDescription("Total oracle price verifications"),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		return err
	}

	v.metrics.deviations, err = meter.Int64Counter(
		"oracle_deviation_rejections_total",
		metric.WithDescription("Prices rejected for exceeding the deviation tolerance"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return err
	}

	v.metrics.staleReadings, err = meter.Int64Counter(
		"oracle_stale_readings_total",
		metric.WithDescription("Oracle readings discarded as stale"),
		metric.WithUnit("{reading}"),
	)
	if err != nil {
		return err
	}

	v.metrics.feedErrors, err = meter.Int64Counter(
		"oracle_feed_errors_total",
		metric.WithDescription("Oracle feed read errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetPrice reads the latest reference price for the pair key. A missing
// feed or a stale round returns CodeOracleFeedMissing / CodeStaleOracleData.
func (v *Verifier) GetPrice(ctx context.Context, pairKey string) (decimal.Decimal, error) {
	ctx, span := v.tracer.Start(ctx, "chainlink.get_price",
		trace.WithAttributes(attribute.String("pair", pairKey)),
	)
	defer span.End()

	if price, found := v.prices.Get(pairKey); found {
		span.AddEvent("cache_hit")
		return price, nil
	}

	feed, ok := v.config.Feeds[pairKey]
	if !ok {
		return decimal.Zero, apperror.New(apperror.CodeOracleFeedMissing,
			apperror.WithContext(fmt.Sprintf("no feed configured for %s", pairKey)))
	}

	outputs, err := v.chain.Call(ctx, feed, AggregatorABI, "latestRoundData")
	if err != nil {
		v.metrics.feedErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "round read failed")
		return decimal.Zero, err
	}

	answer, okA := outputs[1].(*big.Int)
	updatedAt, okU := outputs[3].(*big.Int)
	if !okA || !okU {
		v.metrics.feedErrors.Add(ctx, 1)
		return decimal.Zero, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("unexpected latestRoundData outputs"))
	}

	age := v.now().Sub(time.Unix(updatedAt.Int64(), 0))
	if age > maxReadingAge {
		v.metrics.staleReadings.Add(ctx, 1)
		span.AddEvent("stale_reading",
			trace.WithAttributes(attribute.Float64("age_seconds", age.Seconds())))
		v.logger.Warn(ctx, "stale chainlink reading",
			"pair", pairKey, "age_seconds", age.Seconds())
		return decimal.Zero, apperror.New(apperror.CodeStaleOracleData,
			apperror.WithContext(fmt.Sprintf("%s reading is %.0fs old", pairKey, age.Seconds())))
	}

	decimals, ok := v.decimals[pairKey]
	if !ok {
		decimals = defaultFeedDecimals
	}

	price := decimal.NewFromBigInt(answer, -int32(decimals))

	v.prices.Set(pairKey, price)

	span.SetAttributes(attribute.String("price", price.String()))
	span.SetStatus(codes.Ok, "read")

	return price, nil
}

// VerifyPrice reports whether the market price is within the deviation
// tolerance of the reference feed.
func (v *Verifier) VerifyPrice(ctx context.Context, marketPrice decimal.Decimal, pairKey string) bool {
	ctx, span := v.tracer.Start(ctx, "chainlink.verify_price",
		trace.WithAttributes(
			attribute.String("pair", pairKey),
			attribute.String("market_price", marketPrice.String()),
		),
	)
	defer span.End()

	v.metrics.verifications.Add(ctx, 1)

	reference, err := v.GetPrice(ctx, pairKey)
	if err != nil {
		code := apperror.GetCode(err)
		// No usable reference: skip verification rather than block the
		// pipeline on an absent or stale feed.
		if code == apperror.CodeOracleFeedMissing || code == apperror.CodeStaleOracleData {
			span.AddEvent("verification_skipped")
			v.logger.Info(ctx, "no oracle reference available, skipping verification",
				"pair", pairKey)
			return true
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		v.logger.Error(ctx, "oracle verification error", "pair", pairKey, "error", err)
		return false
	}

	// A zero answer from a live feed fails verification. This is stricter
	// than treating zero as "no reference" and passing: an absent or stale
	// feed passes above, but a feed that answers zero is broken, and a
	// deviation against it is undefined anyway.
	if reference.IsZero() {
		span.AddEvent("zero_reference")
		v.logger.Warn(ctx, "oracle returned zero reference price", "pair", pairKey)
		return false
	}

	deviation := marketPrice.Sub(reference).Abs().Div(reference)
	valid := deviation.LessThanOrEqual(v.config.MaxDeviation)

	if !valid {
		v.metrics.deviations.Add(ctx, 1)
		v.logger.Warn(ctx, "price deviation exceeded",
			"pair", pairKey,
			"market", marketPrice.String(),
			"reference", reference.String(),
			"deviation", deviation.String())
	}

	span.SetAttributes(
		attribute.String("deviation", deviation.String()),
		attribute.Bool("valid", valid),
	)
	span.SetStatus(codes.Ok, "verified")

	return valid
}
