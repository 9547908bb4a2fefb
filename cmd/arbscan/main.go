// Package main is the entry point for the arbscan opportunity scanner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	arbitrageApp "github.com/arbscan/arbscan/business/arbitrage/app"
	arbitrageInfra "github.com/arbscan/arbscan/business/arbitrage/infra"
	"github.com/arbscan/arbscan/business/blockchain/infra/ethereum"
	notifyApp "github.com/arbscan/arbscan/business/notify/app"
	"github.com/arbscan/arbscan/business/notify/infra/console"
	"github.com/arbscan/arbscan/business/notify/infra/telegram"
	"github.com/arbscan/arbscan/business/pricing/infra/cex"
	"github.com/arbscan/arbscan/business/pricing/infra/chainlink"
	"github.com/arbscan/arbscan/business/pricing/infra/uniswap"
	"github.com/arbscan/arbscan/internal/apm"
	"github.com/arbscan/arbscan/internal/asset"
	"github.com/arbscan/arbscan/internal/config"
	"github.com/arbscan/arbscan/internal/health"
	"github.com/arbscan/arbscan/internal/httpclient"
	"github.com/arbscan/arbscan/internal/logger"
	"github.com/arbscan/arbscan/internal/metrics"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const fallbackQuoteDecimals = 6 // USDT/USDC style stable quote

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbscan %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting arbscan",
		"version", version,
		"environment", cfg.App.Environment,
	)

	// Observability
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Chain gateway: ordered provider failover, shared by every on-chain reader.
	gateway, err := ethereum.NewGateway(ethereum.DefaultGatewayConfig(cfg.Ethereum.Providers), log)
	if err != nil {
		return fmt.Errorf("failed to create chain gateway: %w", err)
	}
	if err := gateway.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to ethereum: %w", err)
	}
	defer gateway.Close()
	log.Info(ctx, "ethereum gateway connected", "endpoint", gateway.Endpoint())

	healthServer := health.NewServer(8081, version)
	healthServer.RegisterCheck("ethereum", func(ctx context.Context) (bool, string) {
		if !gateway.Healthy(ctx) {
			return false, "rpc endpoint unreachable"
		}
		return true, gateway.Endpoint()
	})
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(context.Background())

	// CEX aggregator
	httpClient, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("cex"),
		httpclient.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to create http client: %w", err)
	}
	aggregator, err := cex.NewAggregator(cfg.Exchanges, httpClient, log)
	if err != nil {
		return fmt.Errorf("failed to create cex aggregator: %w", err)
	}

	// DEX resolver and liquidity analyzer. Quote-asset decimals come from
	// the well-known registry when the symbol is a known mainnet asset.
	quoteToken := common.HexToAddress(cfg.Tokens[cfg.Scanner.QuoteSymbol])
	quoteDecimals := uint8(fallbackQuoteDecimals)
	if quote, ok := asset.DefaultRegistry().GetBySymbolAndChain(cfg.Scanner.QuoteSymbol, asset.ChainIDEthereum); ok {
		quoteDecimals = quote.Decimals()
	}
	resolver, err := uniswap.NewResolver(uniswap.ResolverConfig{
		Router:        cfg.Ethereum.RouterAddressHex(),
		Factory:       cfg.Ethereum.FactoryAddressHex(),
		QuoteToken:    quoteToken,
		QuoteSymbol:   cfg.Scanner.QuoteSymbol,
		QuoteDecimals: quoteDecimals,
		MaxSlippage:   cfg.Scanner.MaxSlippageDecimal(),
	}, gateway, log)
	if err != nil {
		return fmt.Errorf("failed to create dex resolver: %w", err)
	}

	analyzer, err := uniswap.NewAnalyzer(uniswap.AnalyzerConfig{
		Factory:       cfg.Ethereum.FactoryAddressHex(),
		QuoteToken:    quoteToken,
		QuoteDecimals: quoteDecimals,
	}, gateway, log)
	if err != nil {
		return fmt.Errorf("failed to create liquidity analyzer: %w", err)
	}

	// Chainlink verifier
	feeds := make(map[string]common.Address, len(cfg.Chainlink.Feeds))
	for pair, addr := range cfg.Chainlink.Feeds {
		feeds[pair] = common.HexToAddress(addr)
	}
	verifier, err := chainlink.NewVerifier(ctx, chainlink.VerifierConfig{
		Feeds:        feeds,
		MaxDeviation: cfg.Scanner.MaxDeviationDecimal(),
	}, gateway, log)
	if err != nil {
		return fmt.Errorf("failed to create chainlink verifier: %w", err)
	}

	// Execution time prediction backed by current gas conditions.
	gasOracle, err := ethereum.NewGasOracle(ethereum.DefaultGasOracleConfig(), gateway, log)
	if err != nil {
		return fmt.Errorf("failed to create gas oracle: %w", err)
	}
	predictor, err := arbitrageInfra.NewGasPredictor(arbitrageInfra.DefaultPredictorConfig(), gasOracle, log)
	if err != nil {
		return fmt.Errorf("failed to create execution predictor: %w", err)
	}

	// Alert delivery: Telegram when configured, console otherwise.
	var sender notifyApp.Sender
	if cfg.Telegram.BotToken != "" {
		sender, err = telegram.NewSender(telegram.SenderConfig{
			Token:  cfg.Telegram.BotToken,
			ChatID: cfg.Telegram.ChatID,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create telegram sender: %w", err)
		}
		log.Info(ctx, "alerts routed to telegram", "chat_id", cfg.Telegram.ChatID)
	} else {
		sender = console.NewSender()
		log.Info(ctx, "telegram not configured, alerts routed to stdout")
	}

	dispatcher, err := notifyApp.NewDispatcher(sender, notifyApp.DefaultWorkers, log)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	engine, err := arbitrageApp.NewEngine(
		aggregator,
		resolver,
		analyzer,
		verifier,
		predictor,
		dispatcher,
		arbitrageApp.EngineConfig{
			QuoteSymbol:      cfg.Scanner.QuoteSymbol,
			Notional:         cfg.Scanner.ReferenceNotionalDecimal(),
			MinProfit:        cfg.Scanner.MinProfitDecimal(),
			MinLiquidity:     cfg.Scanner.MinLiquidityDecimal(),
			MaxExecutionTime: cfg.Scanner.MaxExecutionTime,
			ScanInterval:     cfg.Scanner.ScanInterval,
			Watchlist:        buildWatchlist(cfg),
		},
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	log.Info(ctx, "scanner running", "interval", cfg.Scanner.ScanInterval)
	runErr := engine.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	log.Info(ctx, "shutting down")
	if err := dispatcher.Stop(); err != nil {
		log.Error(ctx, "error stopping dispatcher", "error", err)
	}

	return runErr
}

// buildWatchlist turns the token registry into scan targets, leaving the
// quote asset out.
func buildWatchlist(cfg *config.Config) []arbitrageApp.WatchItem {
	items := make([]arbitrageApp.WatchItem, 0, len(cfg.Tokens))
	for symbol, addr := range cfg.Tokens {
		if symbol == cfg.Scanner.QuoteSymbol {
			continue
		}
		items = append(items, arbitrageApp.WatchItem{
			Symbol: symbol,
			Token:  common.HexToAddress(addr),
		})
	}
	return items
}
