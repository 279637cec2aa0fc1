package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/feejar-monitor/business/blockchain/domain"
)

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	watcher   HeadWatcher
	gasOracle GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(watcher HeadWatcher, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		watcher:   watcher,
		gasOracle: gasOracle,
	}
}

// WatchHeads starts the head watcher and returns its channel.
func (s *BlockchainService) WatchHeads(ctx context.Context) (<-chan *domain.Block, error) {
	return s.watcher.Watch(ctx)
}

// LatestBlock returns the current head.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.watcher.LatestBlock(ctx)
}

// GetGasPrice retrieves the current gas price.
func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// EstimateGas prices a call against the node.
func (s *BlockchainService) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	return s.gasOracle.EstimateGas(ctx, from, to, data)
}

// ConnectionStatus returns the head watcher's view of the node.
func (s *BlockchainService) ConnectionStatus() domain.ConnectionStatus {
	return s.watcher.Status()
}
