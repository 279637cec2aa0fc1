package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	blockchainDomain "github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/asset"
	"github.com/fd1az/feejar-monitor/internal/cache"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/feejar-monitor/business/jar/app"
	meterName  = "github.com/fd1az/feejar-monitor/business/jar/app"

	latestKey = "latest"
)

// ServiceConfig describes the jar being watched.
type ServiceConfig struct {
	Jar              common.Address
	Tokens           []common.Address
	ResourceDecimals int // used when resource metadata cannot be read
	SimulationMode   bool
	EvaluationTTL    time.Duration
	ChainID          uint64
}

// Deps are the collaborators of JarService. Discovery may be nil.
type Deps struct {
	Balances  BalanceReader
	Release   ReleaseReader
	Discovery TokenDiscoverer
	Encoder   ClaimEncoder
	Pricer    Pricer
	Chain     Chain
}

// JarService reads the jar, prices it and runs the engine.
type JarService struct {
	cfg    ServiceConfig
	deps   Deps
	engine *domain.Engine
	logger logger.LoggerInterface

	evaluations *cache.Cache[string, *Evaluation]
	tracer      trace.Tracer
}

// NewJarService creates a new JarService.
func NewJarService(cfg ServiceConfig, engine *domain.Engine, deps Deps, log logger.LoggerInterface) *JarService {
	if cfg.EvaluationTTL <= 0 {
		cfg.EvaluationTTL = 10 * time.Second
	}
	return &JarService{
		cfg:         cfg,
		deps:        deps,
		engine:      engine,
		logger:      log,
		evaluations: cache.New[string, *Evaluation](time.Minute),
		tracer:      otel.Tracer(tracerName),
	}
}

// Engine returns the engine the service evaluates with.
func (s *JarService) Engine() *domain.Engine {
	return s.engine
}

// SimulationMode reports whether claim transactions may be built.
func (s *JarService) SimulationMode() bool {
	return s.cfg.SimulationMode
}

// Snapshot reads balances, release state, gas and prices at the current head.
func (s *JarService) Snapshot(ctx context.Context) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "jar.snapshot")
	defer span.End()

	var (
		release  ReleaseConfig
		holdings []asset.Amount
		gasPrice *blockchainDomain.GasPrice
		ethUSD   asset.USDPrice
		block    *blockchainDomain.Block
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		release, err = s.deps.Release.Config(gctx)
		return err
	})
	g.Go(func() (err error) {
		holdings, err = s.deps.Balances.Balances(gctx, s.cfg.Jar, s.tokenList(gctx))
		return err
	})
	g.Go(func() (err error) {
		gasPrice, err = s.deps.Chain.GetGasPrice(gctx)
		return err
	})
	g.Go(func() (err error) {
		ethUSD, err = s.deps.Pricer.ETHUSD(gctx)
		return err
	})
	g.Go(func() (err error) {
		block, err = s.deps.Chain.LatestBlock(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot")
		return nil, err
	}

	resourceAsset := s.resourceAsset(ctx, release.ResourceToken)

	held := make([]asset.Amount, 0, len(holdings))
	assets := make([]*asset.Asset, 0, len(holdings)+1)
	for _, h := range holdings {
		if h.IsZero() {
			continue
		}
		held = append(held, h)
		assets = append(assets, h.Asset())
	}
	assets = append(assets, resourceAsset)

	prices, err := s.deps.Pricer.USDPrices(ctx, assets)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prices")
		return nil, err
	}

	gas, err := domain.GasContextFromWei(gasPrice.Wei, ethUSD.USD())
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		BlockNumber: block.Number,
		Timestamp:   time.Now().UTC(),
		Release:     release,
		Tokens:      make([]domain.TokenBalance, 0, len(held)),
		Gas:         gas,
		GasPriceWei: new(big.Int).Set(gasPrice.Wei),
		ETHUSD:      ethUSD,
	}

	for _, h := range held {
		a := h.Asset()
		price := prices[a.Address()]
		if price.IsZero() {
			snap.Unpriced = append(snap.Unpriced, a.Address())
		}
		tb, err := domain.NewTokenBalance(a.Address().Hex(), a.Symbol(), h.Raw(), int(a.Decimals()), price.USD())
		if err != nil {
			return nil, err
		}
		snap.Tokens = append(snap.Tokens, tb)
	}

	snap.Resource, err = domain.NewResource(resourceAsset.Address(), resourceAsset.Symbol(),
		int(resourceAsset.Decimals()), prices[resourceAsset.Address()].USD())
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("block", int64(snap.BlockNumber)),
		attribute.Int("tokens", len(snap.Tokens)),
		attribute.Int("unpriced", len(snap.Unpriced)),
	)
	span.SetStatus(codes.Ok, "ok")
	return snap, nil
}

// tokenList is the configured tokens plus any discovered ones.
func (s *JarService) tokenList(ctx context.Context) []common.Address {
	if s.deps.Discovery == nil {
		return s.cfg.Tokens
	}

	found, err := s.deps.Discovery.Discover(ctx, s.cfg.Jar)
	if err != nil {
		s.logger.Warn(ctx, "token discovery failed, using configured tokens", "error", err)
		return s.cfg.Tokens
	}

	seen := make(map[common.Address]bool, len(s.cfg.Tokens)+len(found))
	out := make([]common.Address, 0, len(s.cfg.Tokens)+len(found))
	for _, list := range [][]common.Address{s.cfg.Tokens, found} {
		for _, t := range list {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

func (s *JarService) resourceAsset(ctx context.Context, token common.Address) *asset.Asset {
	a, err := s.deps.Balances.Metadata(ctx, token)
	if err == nil {
		return a
	}

	s.logger.Warn(ctx, "resource token metadata unavailable", "token", token.Hex(), "error", err)
	a, err = asset.New(token, "RESOURCE", uint8(s.cfg.ResourceDecimals))
	if err != nil {
		// zero address: still usable as a label
		return asset.Native("RESOURCE", "resource", uint8(s.cfg.ResourceDecimals))
	}
	return a
}

// Evaluate returns the latest evaluation, computing it at most once per TTL.
func (s *JarService) Evaluate(ctx context.Context) (*Evaluation, error) {
	return s.evaluations.GetOrFetch(ctx, latestKey, s.cfg.EvaluationTTL, s.evaluate)
}

// Refresh drops the cached evaluation and computes a new one.
func (s *JarService) Refresh(ctx context.Context) (*Evaluation, error) {
	s.evaluations.Delete(ctx, latestKey)
	return s.Evaluate(ctx)
}

func (s *JarService) evaluate(ctx context.Context) (*Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "jar.evaluate")
	defer span.End()

	start := time.Now()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot")
		return nil, err
	}

	sel, err := s.engine.SelectOptimalBurn(snap.Tokens, snap.Resource, snap.Release.Threshold, snap.Gas)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine")
		return nil, err
	}

	ev := &Evaluation{
		Snapshot:  snap,
		Selection: sel,
		Formatted: domain.Format(sel.Result),
		Duration:  time.Since(start),
	}

	span.SetAttributes(
		attribute.String("net_profit_usd", ev.Formatted.NetProfitUSD),
		attribute.Bool("profitable", ev.Formatted.IsProfitable),
	)
	span.SetStatus(codes.Ok, "ok")

	s.logger.Debug(ctx, "jar evaluated",
		"block", snap.BlockNumber,
		"claimable", len(sel.Result.Claimable),
		"dust", len(sel.Result.Dust),
		"net", ev.Formatted.NetProfitUSD)

	return ev, nil
}

// Simulate runs the engine over a caller-supplied snapshot.
func (s *JarService) Simulate(in SimulationInput) (domain.BurnSelection, domain.FormattedResult, error) {
	if len(in.Tokens) == 0 {
		return domain.BurnSelection{}, domain.FormattedResult{}, apperror.Validation(apperror.CodeInvalidInput, "tokens must not be empty")
	}

	sel, err := s.engine.SelectOptimalBurn(in.Tokens, in.Resource, in.Threshold, in.Gas)
	if err != nil {
		return domain.BurnSelection{}, domain.FormattedResult{}, err
	}
	return sel, domain.Format(sel.Result), nil
}

// Status summarises the latest evaluation.
func (s *JarService) Status(ctx context.Context) (*Status, error) {
	ev, err := s.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	snap := ev.Snapshot

	return &Status{
		JarAddress:     s.cfg.Jar.Hex(),
		ReleaseAddress: snap.Release.Address.Hex(),
		ResourceToken:  snap.Resource.Address().Hex(),
		ResourceSymbol: snap.Resource.Symbol(),
		Threshold:      domain.TokenAmount(snap.Resource.Whole(snap.Release.Threshold)),
		ThresholdRaw:   snap.Release.Threshold.String(),
		Nonce:          snap.Release.Nonce.String(),
		BlockNumber:    snap.BlockNumber,
		GasPriceGwei:   snap.Gas.GasPriceGwei().StringFixed(2),
		ETHPriceUSD:    domain.USD(snap.ETHUSD.USD()),
		ETHPriceSource: snap.ETHUSD.Source(),
		TokenCount:     len(snap.Tokens),
		UnpricedCount:  len(snap.Unpriced),
		SimulationMode: s.cfg.SimulationMode,
		EvaluatedAt:    snap.Timestamp,
	}, nil
}

// BuildClaim builds an unsigned release transaction claiming the claimable
// tokens of the latest evaluation for recipient. Only available in
// simulation mode; nothing is signed or sent.
func (s *JarService) BuildClaim(ctx context.Context, recipient string) (*ClaimTx, error) {
	if !s.cfg.SimulationMode {
		return nil, apperror.Forbidden(apperror.CodeFeatureDisabled, "claim transactions are only built in simulation mode")
	}

	ctx, span := s.tracer.Start(ctx, "jar.build_claim")
	defer span.End()

	ev, err := s.Evaluate(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	snap := ev.Snapshot

	plan, err := domain.NewClaimPlan(snap.Release.Nonce, ev.Selection, recipient)
	if err != nil {
		return nil, err
	}

	data, err := s.deps.Encoder.EncodeRelease(plan)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Internal(apperror.CodeClaimBuildFailed, "encode release", err)
	}

	gas, err := s.deps.Chain.EstimateGas(ctx, plan.Recipient, snap.Release.Address, data)
	estimated := err == nil
	if err != nil {
		// reverts until the recipient holds and approves the burn
		s.logger.Info(ctx, "claim gas estimate failed, using engine estimate", "error", err)
		gas = ev.Selection.Result.EstimatedGasUnits
	}

	cost := blockchainDomain.NewGasEstimate(gas, blockchainDomain.NewGasPrice(snap.GasPriceWei))

	assets := make([]string, len(plan.Assets))
	for i, a := range plan.Assets {
		assets[i] = a.Hex()
	}

	span.SetAttributes(attribute.Int("assets", len(assets)), attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "built")

	return &ClaimTx{
		From:         plan.Recipient.Hex(),
		To:           snap.Release.Address.Hex(),
		Data:         hexutil.Encode(data),
		Value:        "0",
		Gas:          gas,
		GasEstimated: estimated,
		GasPriceWei:  snap.GasPriceWei.String(),
		ChainID:      s.cfg.ChainID,
		CostETH:      cost.TotalETH().StringFixed(8),
		CostUSD:      domain.USD(cost.TotalETH().Mul(snap.ETHUSD.USD())),
		ReleaseNonce: plan.Nonce.String(),
		Assets:       assets,
		BurnAmount:   fmt.Sprintf("%s %s", domain.TokenAmount(ev.Selection.ResourceAmountWhole), snap.Resource.Symbol()),
		IsProfitable: ev.Formatted.IsProfitable,
		NetProfitUSD: ev.Formatted.NetProfitUSD,
	}, nil
}

// Close stops the evaluation cache janitor.
func (s *JarService) Close() {
	s.evaluations.Close()
}
