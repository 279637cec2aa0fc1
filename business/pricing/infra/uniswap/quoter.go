// Package uniswap implements the OnChainQuoter port on Uniswap V3 QuoterV2.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/feejar-monitor/business/pricing/app"
	"github.com/fd1az/feejar-monitor/business/pricing/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/asset"
	"github.com/fd1az/feejar-monitor/internal/circuitbreaker"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/feejar-monitor/business/pricing/infra/uniswap"
	meterName  = "github.com/fd1az/feejar-monitor/business/pricing/infra/uniswap"
)

var _ app.OnChainQuoter = (*Quoter)(nil)

// ContractCaller is the part of ethclient.Client the quoter needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// QuoterConfig holds configuration for the quoter.
type QuoterConfig struct {
	Address  common.Address
	USD      *asset.Asset // stablecoin quoted into, usually USDC
	FeeTiers []int
}

type quoterMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Quoter prices one whole token in a USD stablecoin.
type Quoter struct {
	client    ContractCaller
	quoter    common.Address
	quoterABI abi.ABI
	usd       *asset.Asset
	feeTiers  []int

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *quoterMetrics
}

// NewQuoter creates a new Uniswap V3 quoter.
func NewQuoter(client ContractCaller, cfg QuoterConfig, log logger.LoggerInterface) (*Quoter, error) {
	parsedABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}
	if cfg.USD == nil {
		cfg.USD = asset.USDC
	}
	if len(cfg.FeeTiers) == 0 {
		cfg.FeeTiers = DefaultFeeTiers
	}

	q := &Quoter{
		client:    client,
		quoter:    cfg.Address,
		quoterABI: parsedABI,
		usd:       cfg.USD,
		feeTiers:  cfg.FeeTiers,
		logger:    log,
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("uniswap-quoter")),
		tracer:    otel.Tracer(tracerName),
	}

	if err := q.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return q, nil
}

func (q *Quoter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	q.metrics = &quoterMetrics{}

	q.metrics.quotesTotal, err = meter.Int64Counter(
		"uniswap_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	q.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswap_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	q.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswap_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	return err
}

// QuoteUSD quotes one whole token into the stablecoin across the fee tiers
// and returns the best rate.
func (q *Quoter) QuoteUSD(ctx context.Context, token *asset.Asset) (decimal.Decimal, error) {
	if token.Address() == q.usd.Address() {
		return decimal.NewFromInt(1), nil
	}

	amountIn := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(token.Decimals())), nil)
	quote, err := q.GetQuote(ctx, token.Address(), q.usd.Address(), amountIn)
	if err != nil {
		return decimal.Zero, err
	}
	return quote.Rate(token.Decimals(), q.usd.Decimals()), nil
}

// GetQuote returns the highest-output quote across the configured fee tiers.
func (q *Quoter) GetQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "uniswap.get_quote",
		trace.WithAttributes(
			attribute.String("token_in", tokenIn.Hex()),
			attribute.String("token_out", tokenOut.Hex()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	q.metrics.quotesTotal.Add(ctx, 1)

	var best *QuoteResult
	var bestFeeTier int

	for _, feeTier := range q.feeTiers {
		res, err := q.getQuoteForFeeTier(ctx, tokenIn, tokenOut, amountIn, feeTier)
		if err != nil {
			span.AddEvent("fee_tier_failed",
				trace.WithAttributes(
					attribute.Int("fee_tier", feeTier),
					attribute.String("error", err.Error()),
				),
			)
			continue
		}

		if best == nil || res.AmountOut.Cmp(best.AmountOut) > 0 {
			best = res
			bestFeeTier = feeTier
		}
	}

	q.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if best == nil || best.AmountOut.Sign() == 0 {
		q.metrics.quoteErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "no valid quote")
		return nil, apperror.New(apperror.CodeUniswapQuoteFailed,
			apperror.WithContext(fmt.Sprintf("no pool for %s -> %s", tokenIn.Hex(), tokenOut.Hex())))
	}

	quote := &domain.Quote{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    new(big.Int).Set(amountIn),
		AmountOut:   best.AmountOut,
		GasEstimate: best.GasEstimate.Uint64(),
		FeeTier:     bestFeeTier,
		Timestamp:   time.Now(),
	}

	span.SetAttributes(
		attribute.String("amount_out", best.AmountOut.String()),
		attribute.Int("fee_tier", bestFeeTier),
	)
	span.SetStatus(codes.Ok, "quote received")

	q.logger.Debug(ctx, "uniswap quote",
		"token_in", tokenIn.Hex(),
		"amount_out", best.AmountOut.String(),
		"fee", quote.FeeTierPercent(),
	)

	return quote, nil
}

func (q *Quoter) getQuoteForFeeTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, feeTier int) (*QuoteResult, error) {
	callData, err := q.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	// a revert means no pool at this tier, not an unhealthy node
	var reverted error
	result, err := q.cb.Execute(func() ([]byte, error) {
		out, err := q.client.CallContract(ctx, ethereum.CallMsg{
			To:   &q.quoter,
			Data: callData,
		}, nil)
		if err != nil && isRevert(err) {
			reverted = err
			return nil, nil
		}
		return out, err
	})
	if reverted != nil {
		return nil, apperror.New(apperror.CodeUniswapQuoteFailed,
			apperror.WithCause(reverted),
			apperror.WithContext(fmt.Sprintf("fee tier %d", feeTier)))
	}
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter call failed for fee tier %d", feeTier)))
	}

	outputs, err := q.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidQuote, apperror.WithCause(err))
	}
	if len(outputs) < 4 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("unexpected output length: %d", len(outputs))))
	}

	return &QuoteResult{
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}

func isRevert(err error) bool {
	return strings.Contains(err.Error(), "execution reverted")
}
