// Package blockchain implements the blockchain bounded context for Ethereum integration.
package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/feejar-monitor/business/blockchain/app"
	blockchainDI "github.com/fd1az/feejar-monitor/business/blockchain/di"
	"github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/business/blockchain/infra/ethereum"
	"github.com/fd1az/feejar-monitor/internal/config"
	"github.com/fd1az/feejar-monitor/internal/di"
	"github.com/fd1az/feejar-monitor/internal/logger"
	"github.com/fd1az/feejar-monitor/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.HeadWatcher, func(sr di.ServiceRegistry) app.HeadWatcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		w, err := ethereum.NewHeadWatcher(ethereum.HeadWatcherConfig{
			PollInterval: cfg.Ethereum.PollInterval,
			MaxRetries:   cfg.Ethereum.RPCRetries,
			RPCTimeout:   cfg.Ethereum.RPCTimeout,
		}, client, log)
		if err != nil {
			panic("failed to create head watcher: " + err.Error())
		}
		return w
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		oracle, err := ethereum.NewGasOracle(ethereum.GasOracleConfig{
			CacheTTL:    cfg.Ethereum.GasCacheTTL,
			MaxGasPrice: cfg.Ethereum.MaxGasPriceWei(),
		}, client, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetHeadWatcher(sr), blockchainDI.GetGasOracle(sr))
	})

	return nil
}

// Startup checks the node and registers health checks.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := blockchainDI.GetBlockchainService(mono.Services())

	chainID, err := mono.EthClient().ChainID(ctx)
	if err != nil {
		// node may come up later; the head watcher retries
		log.Error(ctx, "chain id lookup failed", "error", err)
	} else if want := mono.Config().Ethereum.ChainID; want != 0 && chainID.Uint64() != want {
		return fmt.Errorf("connected to chain %d, configured for %d", chainID.Uint64(), want)
	}

	mono.Health().RegisterCheck("ethereum", func(context.Context) (bool, string) {
		s := svc.ConnectionStatus()
		switch s.State {
		case domain.StateConnected:
			return true, fmt.Sprintf("block %d", s.LastBlock)
		case domain.StateDisconnected:
			// not watching (check command) is fine
			return true, string(s.State)
		default:
			return false, fmt.Sprintf("%s after %d failures", s.State, s.Failures)
		}
	})

	if oracle, ok := blockchainDI.GetGasOracle(mono.Services()).(*ethereum.GasOracle); ok {
		mono.Health().RegisterCheck("gas-oracle", func(context.Context) (bool, string) {
			state := oracle.BreakerState()
			return state != "open", state
		})
	}

	log.Info(ctx, "blockchain module started")
	return nil
}
