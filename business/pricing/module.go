// Package pricing implements the pricing bounded context: USD prices for the
// jar's tokens, the resource token and ETH.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/feejar-monitor/business/pricing/app"
	pricingDI "github.com/fd1az/feejar-monitor/business/pricing/di"
	"github.com/fd1az/feejar-monitor/business/pricing/infra/binance"
	"github.com/fd1az/feejar-monitor/business/pricing/infra/coingecko"
	"github.com/fd1az/feejar-monitor/business/pricing/infra/uniswap"
	"github.com/fd1az/feejar-monitor/internal/asset"
	"github.com/fd1az/feejar-monitor/internal/config"
	"github.com/fd1az/feejar-monitor/internal/di"
	"github.com/fd1az/feejar-monitor/internal/logger"
	"github.com/fd1az/feejar-monitor/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.PriceFeed, func(sr di.ServiceRegistry) app.PriceFeed {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		feed, err := coingecko.NewFeed(coingecko.Config{
			BaseURL:           cfg.Pricing.FeedURL,
			APIKey:            cfg.Pricing.FeedAPIKey,
			Platform:          cfg.Pricing.FeedPlatform,
			RequestsPerMinute: cfg.Pricing.RequestsPerMinute,
			Timeout:           cfg.Pricing.Timeout,
		}, log)
		if err != nil {
			panic("failed to create price feed: " + err.Error())
		}
		return feed
	})

	di.RegisterToken(c, pricingDI.SpotTicker, func(sr di.ServiceRegistry) app.SpotTicker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		ticker, err := binance.NewTicker(binance.TickerConfig{
			BaseURL: cfg.Pricing.TickerURL,
			Symbol:  cfg.Pricing.TickerSymbol,
			Timeout: cfg.Pricing.Timeout,
		}, log)
		if err != nil {
			panic("failed to create spot ticker: " + err.Error())
		}
		return ticker
	})

	di.RegisterToken(c, pricingDI.OnChainQuoter, func(sr di.ServiceRegistry) app.OnChainQuoter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		usd, ok := registry.Get(cfg.Pricing.USDCAddressHex())
		if !ok {
			usd = asset.USDC
		}

		quoter, err := uniswap.NewQuoter(ethClient, uniswap.QuoterConfig{
			Address:  cfg.Pricing.QuoterAddressHex(),
			USD:      usd,
			FeeTiers: cfg.Pricing.QuoterFeeTiers,
		}, log)
		if err != nil {
			panic("failed to create uniswap quoter: " + err.Error())
		}
		return quoter
	})

	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var ticker app.SpotTicker
		if cfg.Pricing.TickerEnabled {
			ticker = pricingDI.GetSpotTicker(sr)
		}
		var quoter app.OnChainQuoter
		if cfg.Pricing.QuoterEnabled {
			quoter = pricingDI.GetOnChainQuoter(sr)
		}

		svcCfg := app.DefaultServiceConfig()
		svcCfg.CacheTTL = cfg.Pricing.CacheTTL

		svc, err := app.NewPricingService(svcCfg, pricingDI.GetPriceFeed(sr), ticker, quoter, log)
		if err != nil {
			panic("failed to create pricing service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup warms the ETH price so the first evaluation does not pay for it.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := pricingDI.GetPricingService(mono.Services())

	if p, err := svc.ETHUSD(ctx); err != nil {
		log.Warn(ctx, "initial eth price unavailable", "error", err)
	} else {
		log.Info(ctx, "eth price", "usd", p.USD().StringFixed(2), "source", p.Source())
	}

	log.Info(ctx, "pricing module started",
		"ticker", mono.Config().Pricing.TickerEnabled,
		"quoter", mono.Config().Pricing.QuoterEnabled)
	return nil
}
