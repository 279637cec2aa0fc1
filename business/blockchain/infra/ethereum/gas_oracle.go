// Package ethereum provides Ethereum node adapters for the blockchain context.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/cache"
	"github.com/fd1az/feejar-monitor/internal/circuitbreaker"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/feejar-monitor/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/feejar-monitor/business/blockchain/infra/ethereum"

	gasPriceKey = "current"
)

// GasClient is the part of ethclient.Client the oracle needs.
type GasClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // how long a suggested price is reused
	MaxGasPrice *big.Int      // ceiling applied to suggestions, nil for none
}

// DefaultGasOracleConfig caches for about one block and caps at 500 gwei.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL:    12 * time.Second,
		MaxGasPrice: big.NewInt(500_000_000_000),
	}
}

type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	estimateGas     metric.Int64Counter
	clamped         metric.Int64Counter
}

// GasOracle serves suggested gas prices through a TTL cache and a breaker.
type GasOracle struct {
	config GasOracleConfig
	client GasClient
	logger logger.LoggerInterface

	priceCache *cache.Cache[string, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, client GasClient, log logger.LoggerInterface) (*GasOracle, error) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultGasOracleConfig().CacheTTL
	}

	g := &GasOracle{
		config:     cfg,
		client:     client,
		logger:     log,
		priceCache: cache.New[string, *domain.GasPrice](time.Minute),
		cb:         circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-oracle")),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Gas price RPC fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateGas, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.clamped, err = meter.Int64Counter(
		"gas_price_clamped_total",
		metric.WithDescription("Suggestions above the configured ceiling"),
		metric.WithUnit("{fetch}"),
	)
	return err
}

// GetGasPrice returns the cached suggestion or fetches a new one.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	price, err := g.priceCache.GetOrFetch(ctx, gasPriceKey, g.config.CacheTTL, g.fetchGasPrice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	gwei, _ := price.Gwei.Float64()
	span.SetAttributes(attribute.Float64("gwei", gwei))
	span.SetStatus(codes.Ok, "ok")
	return price, nil
}

func (g *GasOracle) fetchGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeCircuitOpen {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		g.metrics.clamped.Add(ctx, 1)
		g.logger.Warn(ctx, "gas price exceeds max, clamping",
			"wei", wei.String(), "max", g.config.MaxGasPrice.String())
		wei = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(wei)
	gwei, _ := price.Gwei.Float64()
	g.metrics.gasPriceGwei.Record(ctx, gwei)

	return price, nil
}

// EstimateGas estimates the gas for a call and adds a 10% margin.
func (g *GasOracle) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	g.metrics.estimateGas.Add(ctx, 1)

	gas, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to estimate gas for %s", to.Hex())))
	}

	gas += gas / 10

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")

	return gas, nil
}

// BreakerState exposes the RPC breaker state for health checks.
func (g *GasOracle) BreakerState() string {
	return g.cb.State()
}

// Close stops the cache janitor.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}
