// Package jar implements the fee jar bounded context: reading the jar,
// deciding whether a claim pays and serving the result.
package jar

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	blockchainDI "github.com/fd1az/feejar-monitor/business/blockchain/di"
	"github.com/fd1az/feejar-monitor/business/jar/app"
	jarDI "github.com/fd1az/feejar-monitor/business/jar/di"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/business/jar/infra/ethereum"
	"github.com/fd1az/feejar-monitor/business/jar/infra/httpapi"
	pricingDI "github.com/fd1az/feejar-monitor/business/pricing/di"
	"github.com/fd1az/feejar-monitor/internal/asset"
	"github.com/fd1az/feejar-monitor/internal/config"
	"github.com/fd1az/feejar-monitor/internal/di"
	"github.com/fd1az/feejar-monitor/internal/logger"
	"github.com/fd1az/feejar-monitor/internal/monolith"
	"github.com/fd1az/feejar-monitor/internal/wsconn"
)

// Module implements the jar bounded context.
type Module struct{}

// RegisterServices registers all jar services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, jarDI.Engine, func(sr di.ServiceRegistry) *domain.Engine {
		cfg := sr.Get("config").(*config.Config)

		engine, err := domain.NewEngine(domain.EngineConfig{
			TransferGasUnits:  cfg.Engine.TransferGasUnits,
			BaseGasUnits:      cfg.Engine.BaseGasUnits,
			SlippageTolerance: cfg.Engine.SlippageDecimal(),
		})
		if err != nil {
			panic("failed to create engine: " + err.Error())
		}
		return engine
	})

	di.RegisterToken(c, jarDI.BalanceReader, func(sr di.ServiceRegistry) app.BalanceReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		erc20Cfg := ethereum.DefaultERC20Config()
		erc20Cfg.MaxTries = cfg.Ethereum.RPCRetries

		reader, err := ethereum.NewERC20Reader(client, registry, erc20Cfg, log)
		if err != nil {
			panic("failed to create erc20 reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, jarDI.ReleaseReader, func(sr di.ServiceRegistry) app.ReleaseReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		threshold, err := cfg.Jar.Threshold()
		if err != nil {
			panic("invalid threshold override: " + err.Error())
		}

		return ethereum.NewReleaseReader(client, ethereum.ReleaseReaderConfig{
			Address:           cfg.Jar.ReleaseAddressHex(),
			ResourceToken:     cfg.Jar.ResourceTokenHex(),
			ThresholdOverride: threshold,
			MaxTries:          cfg.Ethereum.RPCRetries,
		}, log)
	})

	di.RegisterToken(c, jarDI.Discoverer, func(sr di.ServiceRegistry) app.TokenDiscoverer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		return ethereum.NewTokenDiscovery(client, ethereum.DiscoveryConfig{
			FromBlock: cfg.Jar.DiscoveryFromBlock,
			ChunkSize: cfg.Jar.DiscoveryChunkSize,
		}, log)
	})

	di.RegisterToken(c, jarDI.ClaimEncoder, func(sr di.ServiceRegistry) app.ClaimEncoder {
		return ethereum.ClaimEncoder{}
	})

	di.RegisterToken(c, jarDI.JarService, func(sr di.ServiceRegistry) *app.JarService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		deps := app.Deps{
			Balances: jarDI.GetBalanceReader(sr),
			Release:  jarDI.GetReleaseReader(sr),
			Encoder:  jarDI.GetClaimEncoder(sr),
			Pricer:   pricingDI.GetPricingService(sr),
			Chain:    blockchainDI.GetBlockchainService(sr),
		}
		if cfg.Jar.DiscoverTokens {
			deps.Discovery = jarDI.GetDiscoverer(sr)
		}

		return app.NewJarService(app.ServiceConfig{
			Jar:              cfg.Jar.AddressHex(),
			Tokens:           cfg.Jar.TokenAddresses(),
			ResourceDecimals: cfg.Jar.ResourceDecimals,
			SimulationMode:   cfg.Jar.SimulationMode,
			EvaluationTTL:    cfg.Jar.EvaluationTTL,
			ChainID:          cfg.Ethereum.ChainID,
		}, jarDI.GetEngine(sr), deps, log)
	})

	di.RegisterToken(c, jarDI.Hub, func(sr di.ServiceRegistry) *wsconn.Hub {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		hubCfg := wsconn.DefaultConfig()
		hubCfg.OriginPatterns = cfg.API.AllowedOrigins
		return wsconn.NewHub(hubCfg, log)
	})

	di.RegisterToken(c, jarDI.Handler, func(sr di.ServiceRegistry) *httpapi.Handler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return httpapi.NewHandler(jarDI.GetJarService(sr), jarDI.GetHub(sr), cfg.API.AllowedOrigins, log)
	})

	return nil
}

// Startup mounts the API and registers health checks.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	jarDI.GetHandler(sr).Mount(mono.Router())

	if reader, ok := jarDI.GetReleaseReader(sr).(*ethereum.ReleaseReader); ok {
		mono.Health().RegisterCheck("release-reader", func(context.Context) (bool, string) {
			state := reader.BreakerState()
			return state != "open", state
		})
	}
	if reader, ok := jarDI.GetBalanceReader(sr).(*ethereum.ERC20Reader); ok {
		mono.Health().RegisterCheck("erc20-reader", func(context.Context) (bool, string) {
			state := reader.BreakerState()
			return state != "open", state
		})
	}

	hub := jarDI.GetHub(sr)
	mono.Health().RegisterCheck("stream", func(context.Context) (bool, string) {
		return true, fmt.Sprintf("%d clients", hub.Count())
	})

	log.Info(ctx, "jar module started",
		"jar", cfg.Jar.Address,
		"release", cfg.Jar.ReleaseAddress,
		"tokens", len(cfg.Jar.Tokens),
		"discover", cfg.Jar.DiscoverTokens,
		"simulation", cfg.Jar.SimulationMode)
	return nil
}
