package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/feejar-monitor/business/pricing/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/asset"
	"github.com/fd1az/feejar-monitor/internal/cache"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/feejar-monitor/business/pricing/app"
	meterName  = "github.com/fd1az/feejar-monitor/business/pricing/app"

	quoteConcurrency = 4
)

// ServiceConfig tunes the pricing service.
type ServiceConfig struct {
	CacheTTL        time.Duration
	MaxDeviationBps decimal.Decimal // ticker vs feed ETH price warning level
}

// DefaultServiceConfig caches for a minute and warns past 1%.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CacheTTL:        time.Minute,
		MaxDeviationBps: decimal.NewFromInt(100),
	}
}

// PricingService resolves USD prices from the feed, the spot ticker and the
// on-chain quoter, caching each price for CacheTTL.
type PricingService struct {
	feed   PriceFeed
	ticker SpotTicker    // optional
	quoter OnChainQuoter // optional

	cfg    ServiceConfig
	prices *cache.Cache[common.Address, asset.USDPrice]
	logger logger.LoggerInterface

	tracer        trace.Tracer
	sourceCounter metric.Int64Counter
	deviationBps  metric.Float64Gauge
}

// NewPricingService creates a new PricingService. ticker and quoter may be nil.
func NewPricingService(cfg ServiceConfig, feed PriceFeed, ticker SpotTicker, quoter OnChainQuoter, log logger.LoggerInterface) (*PricingService, error) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultServiceConfig().CacheTTL
	}
	if cfg.MaxDeviationBps.IsZero() {
		cfg.MaxDeviationBps = DefaultServiceConfig().MaxDeviationBps
	}

	meter := otel.Meter(meterName)
	sourceCounter, err := meter.Int64Counter(
		"price_resolutions_total",
		metric.WithDescription("Prices resolved, by source"),
		metric.WithUnit("{price}"),
	)
	if err != nil {
		return nil, err
	}
	deviationBps, err := meter.Float64Gauge(
		"eth_price_deviation_bps",
		metric.WithDescription("Ticker vs feed ETH price deviation"),
		metric.WithUnit("bp"),
	)
	if err != nil {
		return nil, err
	}

	return &PricingService{
		feed:          feed,
		ticker:        ticker,
		quoter:        quoter,
		cfg:           cfg,
		prices:        cache.New[common.Address, asset.USDPrice](5 * time.Minute),
		logger:        log,
		tracer:        otel.Tracer(tracerName),
		sourceCounter: sourceCounter,
		deviationBps:  deviationBps,
	}, nil
}

// ETHUSD returns the native asset price.
func (s *PricingService) ETHUSD(ctx context.Context) (asset.USDPrice, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.eth_usd")
	defer span.End()

	p, err := s.prices.GetOrFetch(ctx, asset.ETH.Address(), s.cfg.CacheTTL, s.fetchETH)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "eth price")
		return asset.USDPrice{}, err
	}

	span.SetAttributes(attribute.String("source", p.Source()), attribute.String("usd", p.USD().String()))
	span.SetStatus(codes.Ok, "ok")
	return p, nil
}

func (s *PricingService) fetchETH(ctx context.Context) (asset.USDPrice, error) {
	var (
		g                  errgroup.Group
		tickerUSD, feedUSD decimal.Decimal
		tickerErr, feedErr error
	)

	if s.ticker != nil {
		g.Go(func() error {
			tickerUSD, tickerErr = s.ticker.ETHPriceUSD(ctx)
			return nil
		})
	}
	g.Go(func() error {
		feedUSD, feedErr = s.feed.ETHPriceUSD(ctx)
		return nil
	})
	_ = g.Wait()

	if s.ticker == nil {
		tickerErr = errors.New("ticker disabled")
	}

	switch {
	case tickerErr == nil:
		if feedErr == nil {
			s.checkDeviation(ctx, feedUSD, tickerUSD)
		}
		return s.newPrice(ctx, asset.ETH, tickerUSD, domain.SourceTicker)
	case feedErr == nil:
		if s.ticker != nil {
			s.logger.Warn(ctx, "spot ticker failed, using feed", "error", tickerErr)
		}
		return s.newPrice(ctx, asset.ETH, feedUSD, domain.SourceFeed)
	default:
		return asset.USDPrice{}, apperror.External(apperror.CodePriceFeedFailed, "eth price", errors.Join(tickerErr, feedErr))
	}
}

func (s *PricingService) checkDeviation(ctx context.Context, feedUSD, tickerUSD decimal.Decimal) {
	d := domain.NewDeviation(feedUSD, tickerUSD)
	bps, _ := d.BasisPoints.Float64()
	s.deviationBps.Record(ctx, bps)

	if d.Exceeds(s.cfg.MaxDeviationBps) {
		s.logger.Warn(ctx, "eth price sources disagree",
			"feed", feedUSD.String(),
			"ticker", tickerUSD.String(),
			"bps", d.BasisPoints.StringFixed(1))
	}
}

// USDPrices prices each asset. Cached prices are reused; the rest come from
// the feed in one call, with the quoter as per-token fallback. A token no
// source can price gets a zero price and is not cached.
func (s *PricingService) USDPrices(ctx context.Context, assets []*asset.Asset) (map[common.Address]asset.USDPrice, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.usd_prices",
		trace.WithAttributes(attribute.Int("assets", len(assets))))
	defer span.End()

	out := make(map[common.Address]asset.USDPrice, len(assets))
	var misses []*asset.Asset
	for _, a := range assets {
		if p, ok := s.prices.Get(ctx, a.Address()); ok {
			out[a.Address()] = p
			continue
		}
		misses = append(misses, a)
	}
	span.SetAttributes(attribute.Int("cache_misses", len(misses)))
	if len(misses) == 0 {
		return out, nil
	}

	addrs := make([]common.Address, len(misses))
	for i, a := range misses {
		addrs[i] = a.Address()
	}

	feedPrices, err := s.feed.TokenPricesUSD(ctx, addrs)
	if err != nil {
		if s.quoter == nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "feed failed")
			return nil, apperror.External(apperror.CodePriceFeedFailed, "token prices", err)
		}
		s.logger.Warn(ctx, "price feed failed, falling back to quoter", "error", err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(quoteConcurrency)

	for _, a := range misses {
		if usd, ok := feedPrices[a.Address()]; ok {
			p, err := s.newPrice(ctx, a, usd, domain.SourceFeed)
			if err != nil {
				s.logger.Warn(ctx, "feed returned invalid price", "token", a.Address().Hex(), "error", err)
				p = s.unpriced(ctx, a)
			}
			out[a.Address()] = p
			continue
		}

		if s.quoter == nil {
			out[a.Address()] = s.unpriced(ctx, a)
			continue
		}

		g.Go(func() error {
			p := s.unpriced(ctx, a)
			if usd, err := s.quoter.QuoteUSD(ctx, a); err != nil {
				s.logger.Debug(ctx, "quoter could not price token", "token", a.Address().Hex(), "error", err)
			} else if priced, err := s.newPrice(ctx, a, usd, domain.SourceQuoter); err == nil {
				p = priced
			}

			mu.Lock()
			out[a.Address()] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetStatus(codes.Ok, "ok")
	return out, nil
}

func (s *PricingService) newPrice(ctx context.Context, a *asset.Asset, usd decimal.Decimal, source string) (asset.USDPrice, error) {
	p, err := asset.NewUSDPrice(a, usd, source, time.Now())
	if err != nil {
		return asset.USDPrice{}, apperror.New(apperror.CodeInvalidPrice,
			apperror.WithCause(err),
			apperror.WithContext(source+" "+a.Symbol()))
	}

	s.prices.Set(ctx, a.Address(), p, s.cfg.CacheTTL)
	s.sourceCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	return p, nil
}

func (s *PricingService) unpriced(ctx context.Context, a *asset.Asset) asset.USDPrice {
	s.sourceCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("source", domain.SourceNone)))
	p, _ := asset.NewUSDPrice(a, decimal.Zero, domain.SourceNone, time.Now())
	return p
}

// Close stops the cache janitor.
func (s *PricingService) Close() {
	s.prices.Close()
}
