// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/feejar-monitor/business/blockchain/domain"
)

// HeadWatcher follows the chain head.
type HeadWatcher interface {
	// Watch starts polling and returns a channel of strictly increasing heads.
	Watch(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// Status returns the current connection status.
	Status() domain.ConnectionStatus
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates the gas needed for a call, with a safety margin.
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)
}
