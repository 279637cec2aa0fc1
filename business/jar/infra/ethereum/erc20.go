// Package ethereum reads the jar and its release contract from the chain.
package ethereum

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/asset"
	"github.com/fd1az/feejar-monitor/internal/circuitbreaker"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/feejar-monitor/business/jar/infra/ethereum"
	meterName  = "github.com/fd1az/feejar-monitor/business/jar/infra/ethereum"
)

var _ app.BalanceReader = (*ERC20Reader)(nil)

// ContractCaller is the part of ethclient.Client the readers need.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ERC20Config holds configuration for the ERC-20 reader.
type ERC20Config struct {
	Concurrency  int
	MaxTries     uint
	MetadataSize int
}

// DefaultERC20Config returns sensible defaults.
func DefaultERC20Config() ERC20Config {
	return ERC20Config{
		Concurrency:  8,
		MaxTries:     3,
		MetadataSize: 512,
	}
}

type erc20Metrics struct {
	calls       metric.Int64Counter
	callErrors  metric.Int64Counter
	skipped     metric.Int64Counter
	metaHitMiss metric.Int64Counter
}

// ERC20Reader reads balances and token metadata with eth_call.
type ERC20Reader struct {
	client   ContractCaller
	registry *asset.Registry
	meta     *lru.Cache
	config   ERC20Config

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *erc20Metrics
}

// NewERC20Reader creates a reader. Tokens in registry never cost an RPC
// call for metadata.
func NewERC20Reader(client ContractCaller, registry *asset.Registry, cfg ERC20Config, log logger.LoggerInterface) (*ERC20Reader, error) {
	def := DefaultERC20Config()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = def.MaxTries
	}
	if cfg.MetadataSize <= 0 {
		cfg.MetadataSize = def.MetadataSize
	}
	if registry == nil {
		registry = asset.NewRegistry()
	}

	meta, err := lru.New(cfg.MetadataSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}

	r := &ERC20Reader{
		client:   client,
		registry: registry,
		meta:     meta,
		config:   cfg,
		logger:   log,
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("erc20-reader")),
		tracer:   otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return r, nil
}

func (r *ERC20Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &erc20Metrics{}

	r.metrics.calls, err = meter.Int64Counter(
		"erc20_calls_total",
		metric.WithDescription("Total ERC-20 eth_call requests"),
	)
	if err != nil {
		return err
	}

	r.metrics.callErrors, err = meter.Int64Counter(
		"erc20_call_errors_total",
		metric.WithDescription("Total failed ERC-20 eth_call requests"),
	)
	if err != nil {
		return err
	}

	r.metrics.skipped, err = meter.Int64Counter(
		"erc20_tokens_skipped_total",
		metric.WithDescription("Tokens skipped because they do not behave as ERC-20"),
	)
	if err != nil {
		return err
	}

	r.metrics.metaHitMiss, err = meter.Int64Counter(
		"erc20_metadata_lookups_total",
		metric.WithDescription("Metadata lookups by cache outcome"),
	)
	return err
}

// Balances reads holder's balance of every token in parallel. Tokens whose
// calls revert are skipped with a warning; order follows tokens.
func (r *ERC20Reader) Balances(ctx context.Context, holder common.Address, tokens []common.Address) ([]asset.Amount, error) {
	ctx, span := r.tracer.Start(ctx, "erc20.balances",
		trace.WithAttributes(
			attribute.String("holder", holder.Hex()),
			attribute.Int("tokens", len(tokens)),
		),
	)
	defer span.End()

	results := make([]*asset.Amount, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	for i, token := range tokens {
		g.Go(func() error {
			h, err := r.holding(gctx, holder, token)
			if err != nil {
				if notERC20(err) {
					r.metrics.skipped.Add(gctx, 1)
					r.logger.Warn(gctx, "skipping token", "token", token.Hex(), "error", err)
					return nil
				}
				return err
			}
			results[i] = h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balances")
		return nil, apperror.New(apperror.CodeBalanceFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext(holder.Hex()))
	}

	out := make([]asset.Amount, 0, len(tokens))
	for _, h := range results {
		if h != nil {
			out = append(out, *h)
		}
	}

	span.SetAttributes(attribute.Int("held", len(out)))
	span.SetStatus(codes.Ok, "ok")
	return out, nil
}

func (r *ERC20Reader) holding(ctx context.Context, holder, token common.Address) (*asset.Amount, error) {
	a, err := r.Metadata(ctx, token)
	if err != nil {
		return nil, err
	}
	bal, err := r.balanceOf(ctx, token, holder)
	if err != nil {
		return nil, err
	}
	amt, err := asset.NewAmount(a, bal)
	if err != nil {
		return nil, err
	}
	return &amt, nil
}

func (r *ERC20Reader) balanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, err
	}
	out, err := r.call(ctx, token, data)
	if err != nil {
		return nil, err
	}

	values, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil || len(values) == 0 {
		return nil, fmt.Errorf("%w: balanceOf %s returned %d bytes", errNotERC20, token.Hex(), len(out))
	}
	return values[0].(*big.Int), nil
}

// Metadata returns symbol and decimals for token, from the registry, the
// LRU or the chain, in that order.
func (r *ERC20Reader) Metadata(ctx context.Context, token common.Address) (*asset.Asset, error) {
	if a, ok := r.registry.Get(token); ok {
		return a, nil
	}
	if v, ok := r.meta.Get(token); ok {
		r.metrics.metaHitMiss.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "hit")))
		return v.(*asset.Asset), nil
	}
	r.metrics.metaHitMiss.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "miss")))

	decimals, err := r.decimals(ctx, token)
	if err != nil {
		return nil, err
	}
	symbol, err := r.symbol(ctx, token)
	if err != nil {
		r.logger.Debug(ctx, "token has no symbol", "token", token.Hex(), "error", err)
		symbol = shortSymbol(token)
	}

	a, err := asset.New(token, symbol, decimals)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err), apperror.WithContext(token.Hex()))
	}
	r.meta.Add(token, a)
	return a, nil
}

func (r *ERC20Reader) decimals(ctx context.Context, token common.Address) (uint8, error) {
	data, _ := erc20ABI.Pack("decimals")
	out, err := r.call(ctx, token, data)
	if err != nil {
		return 0, err
	}
	values, err := erc20ABI.Unpack("decimals", out)
	if err != nil || len(values) == 0 {
		return 0, fmt.Errorf("%w: decimals %s", errNotERC20, token.Hex())
	}
	return values[0].(uint8), nil
}

func (r *ERC20Reader) symbol(ctx context.Context, token common.Address) (string, error) {
	data, _ := erc20ABI.Pack("symbol")
	out, err := r.call(ctx, token, data)
	if err != nil {
		return "", err
	}

	if values, err := erc20ABI.Unpack("symbol", out); err == nil && len(values) > 0 {
		if s := strings.TrimSpace(values[0].(string)); s != "" {
			return s, nil
		}
	}

	values, err := erc20Bytes32.Unpack("symbol", out)
	if err != nil || len(values) == 0 {
		return "", errors.New("undecodable symbol")
	}
	raw := values[0].([32]byte)
	s := strings.TrimSpace(string(bytes.TrimRight(raw[:], "\x00")))
	if s == "" {
		return "", errors.New("empty symbol")
	}
	return s, nil
}

func (r *ERC20Reader) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	r.metrics.calls.Add(ctx, 1)
	out, err := callWithRetry(ctx, r.client, r.cb, r.config.MaxTries, to, data)
	if err != nil && !isRevert(err) {
		r.metrics.callErrors.Add(ctx, 1)
	}
	return out, err
}

func shortSymbol(token common.Address) string {
	return token.Hex()[:8]
}

// BreakerState reports the reader's circuit breaker state.
func (r *ERC20Reader) BreakerState() string {
	return r.cb.State()
}
