// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Jar       JarConfig       `mapstructure:"jar"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	API       APIConfig       `mapstructure:"api"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// LogConfig enables the rotated log file. Empty File keeps stderr only.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	HTTPURL         string        `mapstructure:"http_url"`
	ChainID         uint64        `mapstructure:"chain_id"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	GasCacheTTL     time.Duration `mapstructure:"gas_cache_ttl"`
	MaxGasPriceGwei float64       `mapstructure:"max_gas_price_gwei"`
	RPCRetries      uint          `mapstructure:"rpc_retries"`
	RPCTimeout      time.Duration `mapstructure:"rpc_timeout"`
}

// MaxGasPriceWei returns the gas price ceiling in wei, nil when unset.
func (c *EthereumConfig) MaxGasPriceWei() *big.Int {
	if c.MaxGasPriceGwei <= 0 {
		return nil
	}
	return decimal.NewFromFloat(c.MaxGasPriceGwei).Shift(9).BigInt()
}

// JarConfig describes the jar, its release contract and what to watch.
type JarConfig struct {
	Address               string        `mapstructure:"address"`
	ReleaseAddress        string        `mapstructure:"release_address"`
	ResourceTokenAddress  string        `mapstructure:"resource_token_address"`
	ResourceDecimals      int           `mapstructure:"resource_decimals"`
	ThresholdOverride     string        `mapstructure:"threshold_override"`
	Tokens                []string      `mapstructure:"tokens"`
	DiscoverTokens        bool          `mapstructure:"discover_tokens"`
	DiscoveryFromBlock    uint64        `mapstructure:"discovery_from_block"`
	DiscoveryChunkSize    uint64        `mapstructure:"discovery_chunk_size"`
	SimulationMode        bool          `mapstructure:"simulation_mode"`
	EvaluationTTL         time.Duration `mapstructure:"evaluation_ttl"`
	MinEvaluationInterval time.Duration `mapstructure:"min_evaluation_interval"`
}

// AddressHex returns the jar address.
func (c *JarConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// ReleaseAddressHex returns the release contract address.
func (c *JarConfig) ReleaseAddressHex() common.Address {
	return common.HexToAddress(c.ReleaseAddress)
}

// ResourceTokenHex returns the resource token address.
func (c *JarConfig) ResourceTokenHex() common.Address {
	return common.HexToAddress(c.ResourceTokenAddress)
}

// TokenAddresses returns the configured watch list, de-duplicated.
func (c *JarConfig) TokenAddresses() []common.Address {
	seen := make(map[common.Address]bool, len(c.Tokens))
	out := make([]common.Address, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		addr := common.HexToAddress(strings.TrimSpace(t))
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// Threshold returns the configured threshold override, nil when unset.
func (c *JarConfig) Threshold() (*big.Int, error) {
	if c.ThresholdOverride == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(c.ThresholdOverride, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("jar.threshold_override must be a positive integer, got %q", c.ThresholdOverride)
	}
	return v, nil
}

// EngineConfig holds the gas constants and slippage floor of the engine.
type EngineConfig struct {
	TransferGasUnits  uint64  `mapstructure:"transfer_gas_units"`
	BaseGasUnits      uint64  `mapstructure:"base_gas_units"`
	SlippageTolerance float64 `mapstructure:"slippage_tolerance"`
}

// SlippageDecimal returns the slippage fraction as decimal.Decimal.
func (c *EngineConfig) SlippageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippageTolerance)
}

// PricingConfig holds price source settings.
type PricingConfig struct {
	FeedURL           string        `mapstructure:"feed_url"`
	FeedAPIKey        string        `mapstructure:"feed_api_key"`
	FeedPlatform      string        `mapstructure:"feed_platform"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`

	TickerEnabled bool   `mapstructure:"ticker_enabled"`
	TickerURL     string `mapstructure:"ticker_url"`
	TickerSymbol  string `mapstructure:"ticker_symbol"`

	QuoterEnabled  bool   `mapstructure:"quoter_enabled"`
	QuoterAddress  string `mapstructure:"quoter_address"`
	USDCAddress    string `mapstructure:"usdc_address"`
	QuoterFeeTiers []int  `mapstructure:"quoter_fee_tiers"`
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *PricingConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// USDCAddressHex returns the USDC address used as quote token.
func (c *PricingConfig) USDCAddressHex() common.Address {
	return common.HexToAddress(c.USDCAddress)
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceExporter  string `mapstructure:"trace_exporter"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("JAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
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
	_ = v.BindEnv("app.name", "JAR_APP_NAME", "SERVICE_NAME")
	_ = v.BindEnv("app.environment", "JAR_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("app.log_level", "JAR_LOG_LEVEL", "LOG_LEVEL")

	_ = v.BindEnv("ethereum.http_url", "JAR_ETH_HTTP_URL", "ETH_HTTP_URL")
	_ = v.BindEnv("ethereum.chain_id", "JAR_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	_ = v.BindEnv("jar.address", "JAR_ADDRESS")
	_ = v.BindEnv("jar.release_address", "JAR_RELEASE_ADDRESS")
	_ = v.BindEnv("jar.resource_token_address", "JAR_RESOURCE_TOKEN")
	_ = v.BindEnv("jar.simulation_mode", "JAR_SIMULATION_MODE")

	_ = v.BindEnv("pricing.feed_url", "JAR_PRICE_FEED_URL")
	_ = v.BindEnv("pricing.feed_api_key", "JAR_PRICE_FEED_API_KEY", "COINGECKO_API_KEY")

	_ = v.BindEnv("api.port", "JAR_API_PORT", "PORT")

	_ = v.BindEnv("telemetry.enabled", "JAR_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("telemetry.service_name", "JAR_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.otlp_endpoint", "JAR_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "feejar-monitor")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", true)

	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.poll_interval", "12s")
	v.SetDefault("ethereum.gas_cache_ttl", "12s")
	v.SetDefault("ethereum.max_gas_price_gwei", 500)
	v.SetDefault("ethereum.rpc_retries", 3)
	v.SetDefault("ethereum.rpc_timeout", "10s")

	v.SetDefault("jar.resource_decimals", 18)
	v.SetDefault("jar.discovery_chunk_size", 5000)
	v.SetDefault("jar.simulation_mode", true)
	v.SetDefault("jar.evaluation_ttl", "10s")
	v.SetDefault("jar.min_evaluation_interval", "12s")

	v.SetDefault("engine.transfer_gas_units", 60000)
	v.SetDefault("engine.base_gas_units", 100000)
	v.SetDefault("engine.slippage_tolerance", 0.005)

	v.SetDefault("pricing.feed_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("pricing.feed_platform", "ethereum")
	v.SetDefault("pricing.requests_per_minute", 30)
	v.SetDefault("pricing.timeout", "10s")
	v.SetDefault("pricing.cache_ttl", "60s")
	v.SetDefault("pricing.ticker_enabled", true)
	v.SetDefault("pricing.ticker_url", "https://api.binance.com")
	v.SetDefault("pricing.ticker_symbol", "ETHUSDC")
	v.SetDefault("pricing.quoter_enabled", false)
	v.SetDefault("pricing.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("pricing.usdc_address", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	v.SetDefault("pricing.quoter_fee_tiers", []int{500, 3000, 10000})

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "0s")
	v.SetDefault("api.allowed_origins", []string{"*"})

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "feejar-monitor")
	v.SetDefault("telemetry.trace_exporter", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if !common.IsHexAddress(c.Jar.Address) {
		return fmt.Errorf("invalid jar.address: %q", c.Jar.Address)
	}
	if !common.IsHexAddress(c.Jar.ReleaseAddress) {
		return fmt.Errorf("invalid jar.release_address: %q", c.Jar.ReleaseAddress)
	}
	if !common.IsHexAddress(c.Jar.ResourceTokenAddress) {
		return fmt.Errorf("invalid jar.resource_token_address: %q", c.Jar.ResourceTokenAddress)
	}
	if c.Jar.ResourceDecimals < 0 || c.Jar.ResourceDecimals > 77 {
		return fmt.Errorf("jar.resource_decimals out of range: %d", c.Jar.ResourceDecimals)
	}
	if _, err := c.Jar.Threshold(); err != nil {
		return err
	}
	for _, t := range c.Jar.Tokens {
		if !common.IsHexAddress(strings.TrimSpace(t)) {
			return fmt.Errorf("invalid token in jar.tokens: %q", t)
		}
	}
	if len(c.Jar.Tokens) == 0 && !c.Jar.DiscoverTokens {
		return fmt.Errorf("jar.tokens cannot be empty unless jar.discover_tokens is set")
	}
	if c.Engine.TransferGasUnits == 0 || c.Engine.BaseGasUnits == 0 {
		return fmt.Errorf("engine gas units must be positive")
	}
	if c.Engine.SlippageTolerance < 0 || c.Engine.SlippageTolerance >= 1 {
		return fmt.Errorf("engine.slippage_tolerance must be in [0, 1): %v", c.Engine.SlippageTolerance)
	}
	if c.Pricing.FeedURL == "" {
		return fmt.Errorf("pricing.feed_url is required")
	}
	if c.Pricing.QuoterEnabled {
		if !common.IsHexAddress(c.Pricing.QuoterAddress) {
			return fmt.Errorf("invalid pricing.quoter_address: %q", c.Pricing.QuoterAddress)
		}
		if !common.IsHexAddress(c.Pricing.USDCAddress) {
			return fmt.Errorf("invalid pricing.usdc_address: %q", c.Pricing.USDCAddress)
		}
	}
	return nil
}
