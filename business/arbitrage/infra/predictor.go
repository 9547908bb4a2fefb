// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbscan/arbscan/business/arbitrage/app"
	blockchainApp "github.com/arbscan/arbscan/business/blockchain/app"
	"github.com/arbscan/arbscan/internal/logger"
)

const (
	tracerName = "github.com/arbscan/arbscan/business/arbitrage/infra"
	meterName  = "github.com/arbscan/arbscan/business/arbitrage/infra"
)

// Ensure GasPredictor implements ExecutionPredictor.
var _ app.ExecutionPredictor = (*GasPredictor)(nil)

// PredictorConfig holds the latency model parameters.
type PredictorConfig struct {
	// BaseLatency is the venue round-trip estimate per exchange, seconds.
	BaseLatency map[string]float64
	// DefaultLatency applies to exchanges without a profile.
	DefaultLatency float64
	// GweiPerSecond converts current gas price into settlement seconds.
	GweiPerSecond float64
	// SizeWeight converts notional units into additional fill seconds.
	SizeWeight float64
}

// DefaultPredictorConfig returns the default latency model.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		BaseLatency: map[string]float64{
			"binance":  0.8,
			"kucoin":   1.2,
			"kraken":   1.5,
			"coinbase": 1.0,
		},
		DefaultLatency: 1.5,
		GweiPerSecond:  50,
		SizeWeight:     0.0001,
	}
}

// predictorMetrics holds OTEL metric instruments.
type predictorMetrics struct {
	predictions metric.Int64Counter
	execSeconds metric.Float64Histogram
}

// GasPredictor estimates time-to-fill from a per-exchange latency
// profile plus a settlement component driven by the current gas price.
type GasPredictor struct {
	config PredictorConfig
	gas    blockchainApp.GasPriceProvider
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *predictorMetrics
}

// NewGasPredictor creates a predictor backed by the gas oracle.
func NewGasPredictor(cfg PredictorConfig, gas blockchainApp.GasPriceProvider, log logger.LoggerInterface) (*GasPredictor, error) {
	p := &GasPredictor{
		config: cfg,
		gas:    gas,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return p, nil
}

func (p *GasPredictor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &predictorMetrics{}

	p.metrics.predictions, err = meter.Int64Counter(
		"execution_predictions_total",
		metric.WithDescription("Total execution time predictions"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return err
	}

	p.metrics.execSeconds, err = meter.Float64Histogram(
		"execution_time_estimate_seconds",
		metric.WithDescription("Predicted execution time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Predict estimates the seconds to fill the given notional on exchange.
func (p *GasPredictor) Predict(ctx context.Context, exchange string, notional decimal.Decimal) (float64, error) {
	ctx, span := p.tracer.Start(ctx, "predictor.predict",
		trace.WithAttributes(
			attribute.String("exchange", exchange),
			attribute.String("notional", notional.String()),
		),
	)
	defer span.End()

	p.metrics.predictions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("exchange", exchange)))

	base, ok := p.config.BaseLatency[exchange]
	if !ok {
		base = p.config.DefaultLatency
	}

	price, err := p.gas.GetGasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	settlement := 0.0
	if p.config.GweiPerSecond > 0 {
		settlement = price.Gwei() / p.config.GweiPerSecond
	}

	size, _ := notional.Float64()
	estimate := base + settlement + size*p.config.SizeWeight

	p.metrics.execSeconds.Record(ctx, estimate,
		metric.WithAttributes(attribute.String("exchange", exchange)))

	span.SetAttributes(attribute.Float64("estimate_seconds", estimate))

	p.logger.Debug(ctx, "execution time predicted",
		"exchange", exchange,
		"base", base,
		"settlement", settlement,
		"estimate", estimate)

	return estimate, nil
}
