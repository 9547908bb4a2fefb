// Package metrics wires the OpenTelemetry meter provider used by every
// infra component, with Prometheus and OTLP collector backends.
package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

// NewMetricProvider builds the global meter provider from the configured
// backends and installs it via otel.SetMeterProvider. Exporter construction
// failures panic: metrics are set up once at boot and a broken exporter
// there is a deployment error.
func NewMetricProvider(options ...OptionFn) MetricProvider {
	ctx := context.Background()

	var cfg Config
	for _, opt := range options {
		cfg = opt(cfg)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = os.Getenv("OTEL_SERVICE_NAME")
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(
			resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName)),
		),
	}

	for _, reader := range buildReaders(ctx, cfg) {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)

	return provider
}

func buildReaders(ctx context.Context, cfg Config) []sdkmetric.Reader {
	var readers []sdkmetric.Reader

	for _, backend := range cfg.Provider {
		switch backend.Provider {
		case PrometheusProvider:
			exp, err := prometheus.New()
			if err != nil {
				panic(err)
			}

			readers = append(readers, exp)
		case OtelCollector:
			readers = append(readers, newCollectorReader(ctx, backend))
		}
	}

	if len(readers) == 0 {
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			panic(err)
		}

		readers = append(readers, sdkmetric.NewPeriodicReader(exp))
	}

	return readers
}

func newCollectorReader(ctx context.Context, backend ProviderCfg) sdkmetric.Reader {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpointURL(backend.Endpoint),
		otlpmetricgrpc.WithHeaders(backend.Headers),
	}
	if backend.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		panic(err)
	}

	return sdkmetric.NewPeriodicReader(exp)
}

// ServePrometheusMetrics blocks serving the Prometheus scrape endpoint;
// run it in its own goroutine.
func ServePrometheusMetrics(opt ...PromOptionFn) {
	var cfg PromServerConfig
	for _, o := range opt {
		cfg = o(cfg)
	}

	port := cfg.port
	if port == "" {
		port = "2223"
	}

	log.Printf("serving metrics at :%s/metrics", port)
	http.Handle("/metrics", promhttp.Handler())

	if err := http.ListenAndServe(fmt.Sprintf(":%s", port), nil); err != nil { //nolint:gosec // scrape endpoint, timeouts not needed
		fmt.Printf("error serving http: %v", err)
	}
}
