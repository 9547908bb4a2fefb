// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbscan/arbscan/internal/apperror"
	"github.com/arbscan/arbscan/internal/circuitbreaker"
	"github.com/arbscan/arbscan/internal/logger"
)

const (
	tracerName = "github.com/arbscan/arbscan/business/blockchain/infra/ethereum"
	meterName  = "github.com/arbscan/arbscan/business/blockchain/infra/ethereum"
)

// GatewayConfig holds configuration for the chain gateway.
type GatewayConfig struct {
	Providers   []string      // RPC endpoints tried in order
	DialTimeout time.Duration // Timeout per dial attempt
}

// DefaultGatewayConfig returns sensible defaults.
func DefaultGatewayConfig(providers []string) GatewayConfig {
	return GatewayConfig{
		Providers:   providers,
		DialTimeout: 10 * time.Second,
	}
}

// gatewayMetrics holds OTEL metric instruments.
type gatewayMetrics struct {
	contractCalls metric.Int64Counter
	callErrors    metric.Int64Counter
	reconnects    metric.Int64Counter
	callLatency   metric.Float64Histogram
}

// Gateway provides read access to Ethereum through an ordered list of
// RPC providers. The first provider that answers wins; on connection
// loss the list is walked again from the top.
type Gateway struct {
	config GatewayConfig
	logger logger.LoggerInterface

	client   *ethclient.Client
	endpoint string
	clientMu sync.RWMutex

	// Parsed ABI cache keyed by a hash of the ABI JSON.
	abis   map[uint64]abi.ABI
	abisMu sync.RWMutex

	cb *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *gatewayMetrics
}

// NewGateway creates a new chain gateway. Call Connect before use.
func NewGateway(cfg GatewayConfig, log logger.LoggerInterface) (*Gateway, error) {
	g := &Gateway{
		config: cfg,
		logger: log,
		abis:   make(map[uint64]abi.ABI),
		tracer: otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	g.initCircuitBreaker()

	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gatewayMetrics{}

	g.metrics.contractCalls, err = meter.Int64Counter(
		"eth_contract_calls_total",
		metric.WithDescription("Total contract call attempts"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	g.metrics.callErrors, err = meter.Int64Counter(
		"eth_contract_call_errors_total",
		metric.WithDescription("Total contract call errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	g.metrics.reconnects, err = meter.Int64Counter(
		"eth_reconnects_total",
		metric.WithDescription("Total reconnection attempts"),
		metric.WithUnit("{reconnect}"),
	)
	if err != nil {
		return err
	}

	g.metrics.callLatency, err = meter.Float64Histogram(
		"eth_contract_call_latency_ms",
		metric.WithDescription("Contract call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

func (g *Gateway) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("eth-gateway")
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		g.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	g.cb = circuitbreaker.New[[]byte](cfg)
}

// Connect walks the provider list in order and keeps the first endpoint
// that answers a ChainID probe.
func (g *Gateway) Connect(ctx context.Context) error {
	ctx, span := g.tracer.Start(ctx, "eth.connect")
	defer span.End()

	for _, url := range g.config.Providers {
		dialCtx, cancel := context.WithTimeout(ctx, g.config.DialTimeout)
		client, err := ethclient.DialContext(dialCtx, url)
		if err == nil {
			_, err = client.ChainID(dialCtx)
		}
		cancel()

		if err != nil {
			span.AddEvent("provider_failed",
				trace.WithAttributes(attribute.String("url", url)))
			g.logger.Warn(ctx, "provider connection failed", "url", url, "error", err)
			continue
		}

		g.clientMu.Lock()
		if g.client != nil {
			g.client.Close()
		}
		g.client = client
		g.endpoint = url
		g.clientMu.Unlock()

		span.SetStatus(codes.Ok, "connected")
		g.logger.Info(ctx, "connected to ethereum provider", "url", url)

		return nil
	}

	err := apperror.New(apperror.CodeConnectivityError,
		apperror.WithContext("could not connect to any ethereum provider"))
	span.RecordError(err)
	span.SetStatus(codes.Error, "all providers failed")

	return err
}

// ReconnectIfNeeded probes the current connection and walks the provider
// list again when it is gone.
func (g *Gateway) ReconnectIfNeeded(ctx context.Context) error {
	g.clientMu.RLock()
	client := g.client
	g.clientMu.RUnlock()

	if client != nil {
		probeCtx, cancel := context.WithTimeout(ctx, g.config.DialTimeout)
		_, err := client.ChainID(probeCtx)
		cancel()
		if err == nil {
			return nil
		}
		g.logger.Warn(ctx, "ethereum connection lost, reconnecting")
	}

	g.metrics.reconnects.Add(ctx, 1)

	return g.Connect(ctx)
}

// Healthy reports whether the current connection answers a ChainID probe.
func (g *Gateway) Healthy(ctx context.Context) bool {
	g.clientMu.RLock()
	client := g.client
	g.clientMu.RUnlock()

	if client == nil {
		return false
	}

	_, err := client.ChainID(ctx)
	return err == nil
}

// Endpoint returns the currently connected provider URL.
func (g *Gateway) Endpoint() string {
	g.clientMu.RLock()
	defer g.clientMu.RUnlock()
	return g.endpoint
}

// Call packs a read-only contract call, executes it through the circuit
// breaker and returns the unpacked outputs.
func (g *Gateway) Call(ctx context.Context, to common.Address, abiJSON, method string, args ...any) ([]any, error) {
	ctx, span := g.tracer.Start(ctx, "eth.contract_call",
		trace.WithAttributes(
			attribute.String("contract", to.Hex()),
			attribute.String("method", method),
		),
	)
	defer span.End()

	start := time.Now()
	g.metrics.contractCalls.Add(ctx, 1)

	parsed, err := g.parsedABI(abiJSON)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext("failed to parse contract ABI"))
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to pack %s call", method)))
	}

	result, err := g.executeCall(ctx, to, data)
	if err != nil && !g.cb.IsOpen() {
		// A dropped RPC connection would otherwise fail every later read
		// until restart. Check the connection, walk the provider list if
		// it is gone, and retry the call once.
		if rerr := g.ReconnectIfNeeded(ctx); rerr == nil {
			span.AddEvent("retried_after_reconnect")
			result, err = g.executeCall(ctx, to, data)
		}
	}

	g.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		g.metrics.callErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")

		if apperror.GetCode(err) == apperror.CodeConnectivityError {
			return nil, err
		}

		code := apperror.CodeContractCallFailed
		if g.cb.IsOpen() {
			code = apperror.CodeCircuitOpen
		}

		return nil, apperror.New(code,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s call to %s failed", method, to.Hex())))
	}

	outputs, err := parsed.Unpack(method, result)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to unpack %s result", method)))
	}

	span.SetStatus(codes.Ok, "called")

	return outputs, nil
}

// executeCall runs the raw eth_call through the circuit breaker against
// the current client.
func (g *Gateway) executeCall(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	g.clientMu.RLock()
	client := g.client
	g.clientMu.RUnlock()

	if client == nil {
		return nil, apperror.New(apperror.CodeConnectivityError,
			apperror.WithContext("gateway not connected"))
	}

	return g.cb.Execute(func() ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{
			To:   &to,
			Data: data,
		}, nil)
	})
}

// parsedABI returns the parsed ABI, using the cache when available.
func (g *Gateway) parsedABI(abiJSON string) (abi.ABI, error) {
	key := hashABI(abiJSON)

	g.abisMu.RLock()
	parsed, ok := g.abis[key]
	g.abisMu.RUnlock()
	if ok {
		return parsed, nil
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return abi.ABI{}, err
	}

	g.abisMu.Lock()
	g.abis[key] = parsed
	g.abisMu.Unlock()

	return parsed, nil
}

// SuggestGasPrice returns the current suggested gas price in wei.
func (g *Gateway) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	g.clientMu.RLock()
	client := g.client
	g.clientMu.RUnlock()

	if client == nil {
		return nil, apperror.New(apperror.CodeConnectivityError,
			apperror.WithContext("gateway not connected"))
	}

	wei, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	return wei, nil
}

// Close closes the underlying client.
func (g *Gateway) Close() error {
	g.clientMu.Lock()
	defer g.clientMu.Unlock()

	if g.client != nil {
		g.client.Close()
		g.client = nil
	}

	return nil
}

// IsAddress reports whether s is a valid hex address.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}

// ToChecksumAddress converts a hex address to its checksum form.
func ToChecksumAddress(s string) string {
	return common.HexToAddress(s).Hex()
}

func hashABI(abiJSON string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(abiJSON))
	return h.Sum64()
}
