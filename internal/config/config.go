// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig                 `mapstructure:"app"`
	Ethereum  EthereumConfig            `mapstructure:"ethereum"`
	Exchanges map[string]ExchangeConfig `mapstructure:"exchanges"`
	Chainlink ChainlinkConfig           `mapstructure:"chainlink"`
	Tokens    map[string]string         `mapstructure:"tokens"`
	Scanner   ScannerConfig             `mapstructure:"scanner"`
	Telegram  TelegramConfig            `mapstructure:"telegram"`
	Telemetry TelemetryConfig           `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds chain connectivity and AMM contract addresses.
type EthereumConfig struct {
	Providers      []string `mapstructure:"providers"`
	ChainID        uint64   `mapstructure:"chain_id"`
	RouterAddress  string   `mapstructure:"router_address"`
	FactoryAddress string   `mapstructure:"factory_address"`
}

// RouterAddressHex returns the router address as common.Address.
func (c *EthereumConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// FactoryAddressHex returns the factory address as common.Address.
func (c *EthereumConfig) FactoryAddressHex() common.Address {
	return common.HexToAddress(c.FactoryAddress)
}

// ExchangeConfig holds per-exchange REST access settings.
// URL is an endpoint template with a {pair} placeholder.
type ExchangeConfig struct {
	URL          string  `mapstructure:"url"`
	RateLimit    float64 `mapstructure:"rate_limit"` // allowed requests per second
	AuthRequired bool    `mapstructure:"auth_required"`
	APIKey       string  `mapstructure:"api_key"`
	APISecret    string  `mapstructure:"api_secret"`
}

// ChainlinkConfig maps pair keys (e.g. "ETH/USD") to aggregator feed addresses.
type ChainlinkConfig struct {
	Feeds map[string]string `mapstructure:"feeds"`
}

// ScannerConfig holds the decision thresholds and scan cadence.
type ScannerConfig struct {
	QuoteSymbol       string        `mapstructure:"quote_symbol"`
	ReferenceNotional float64       `mapstructure:"reference_notional"`
	MinProfit         float64       `mapstructure:"min_profit"`
	MaxDeviation      float64       `mapstructure:"max_deviation"`
	MinLiquidity      float64       `mapstructure:"min_liquidity"`
	MaxExecutionTime  float64       `mapstructure:"max_execution_time"` // seconds
	MaxSlippage       float64       `mapstructure:"max_slippage"`
	ScanInterval      time.Duration `mapstructure:"scan_interval"`
}

// ReferenceNotionalDecimal returns the reference notional as decimal.Decimal.
func (c *ScannerConfig) ReferenceNotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ReferenceNotional)
}

// MinProfitDecimal returns the minimum profit threshold as decimal.Decimal.
func (c *ScannerConfig) MinProfitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfit)
}

// MaxDeviationDecimal returns the maximum oracle deviation as decimal.Decimal.
func (c *ScannerConfig) MaxDeviationDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxDeviation)
}

// MinLiquidityDecimal returns the minimum pool depth as decimal.Decimal.
func (c *ScannerConfig) MinLiquidityDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinLiquidity)
}

// MaxSlippageDecimal returns the slippage haircut as decimal.Decimal.
func (c *ScannerConfig) MaxSlippageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxSlippage)
}

// TelegramConfig holds alert channel credentials.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARBSCAN")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARBSCAN_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARBSCAN_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARBSCAN_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.providers", "ARBSCAN_ETH_PROVIDERS", "ETH_PROVIDERS")
	v.BindEnv("ethereum.chain_id", "ARBSCAN_ETH_CHAIN_ID", "ETH_CHAIN_ID")
	v.BindEnv("ethereum.router_address", "ARBSCAN_UNISWAP_ROUTER", "UNISWAP_ROUTER")
	v.BindEnv("ethereum.factory_address", "ARBSCAN_UNISWAP_FACTORY", "UNISWAP_FACTORY")

	// Scanner thresholds
	v.BindEnv("scanner.min_profit", "ARBSCAN_MIN_PROFIT")
	v.BindEnv("scanner.max_deviation", "ARBSCAN_MAX_DEVIATION")
	v.BindEnv("scanner.min_liquidity", "ARBSCAN_MIN_LIQUIDITY")
	v.BindEnv("scanner.max_execution_time", "ARBSCAN_MAX_EXECUTION_TIME")
	v.BindEnv("scanner.max_slippage", "ARBSCAN_MAX_SLIPPAGE")

	// Telegram
	v.BindEnv("telegram.bot_token", "ARBSCAN_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "ARBSCAN_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARBSCAN_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARBSCAN_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARBSCAN_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "arbscan")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults (Uniswap V2 Mainnet)
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.router_address", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	v.SetDefault("ethereum.factory_address", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")

	// Chainlink Mainnet defaults
	v.SetDefault("chainlink.feeds", map[string]string{
		"ETH/USD": "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419",
		"BTC/USD": "0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c",
	})

	// Token registry defaults
	v.SetDefault("tokens", map[string]string{
		"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	})

	// Scanner defaults
	v.SetDefault("scanner.quote_symbol", "USDT")
	v.SetDefault("scanner.reference_notional", 1000)
	v.SetDefault("scanner.min_profit", 50)
	v.SetDefault("scanner.max_deviation", 0.05)
	v.SetDefault("scanner.min_liquidity", 10000)
	v.SetDefault("scanner.max_execution_time", 3)
	v.SetDefault("scanner.max_slippage", 0.01)
	v.SetDefault("scanner.scan_interval", "5s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbscan")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Ethereum.Providers) == 0 {
		return fmt.Errorf("ethereum.providers is required")
	}
	if !common.IsHexAddress(c.Ethereum.RouterAddress) {
		return fmt.Errorf("invalid ethereum.router_address: %s", c.Ethereum.RouterAddress)
	}
	if !common.IsHexAddress(c.Ethereum.FactoryAddress) {
		return fmt.Errorf("invalid ethereum.factory_address: %s", c.Ethereum.FactoryAddress)
	}
	if _, ok := c.Tokens[c.Scanner.QuoteSymbol]; !ok {
		return fmt.Errorf("tokens registry is missing the quote asset %q", c.Scanner.QuoteSymbol)
	}
	for sym, addr := range c.Tokens {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid token address for %s: %s", sym, addr)
		}
	}
	for pair, addr := range c.Chainlink.Feeds {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid chainlink feed address for %s: %s", pair, addr)
		}
	}
	if c.Scanner.MaxSlippage < 0 || c.Scanner.MaxSlippage >= 1 {
		return fmt.Errorf("scanner.max_slippage must be in [0, 1): %f", c.Scanner.MaxSlippage)
	}
	return nil
}
