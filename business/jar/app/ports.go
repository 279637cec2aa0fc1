// Package app contains the jar application services and their ports.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/asset"
)

// ReleaseConfig is the on-chain state of the release contract.
type ReleaseConfig struct {
	Address       common.Address
	ResourceToken common.Address
	Threshold     *big.Int
	Nonce         *big.Int
}

// BalanceReader reads ERC-20 balances and metadata.
type BalanceReader interface {
	// Balances returns holder's balance of each token in input order.
	// Contracts that revert are skipped.
	Balances(ctx context.Context, holder common.Address, tokens []common.Address) ([]asset.Amount, error)

	// Metadata resolves symbol and decimals for a token.
	Metadata(ctx context.Context, token common.Address) (*asset.Asset, error)
}

// ReleaseReader reads the release contract.
type ReleaseReader interface {
	Config(ctx context.Context) (ReleaseConfig, error)
}

// TokenDiscoverer finds tokens ever transferred to holder.
type TokenDiscoverer interface {
	Discover(ctx context.Context, holder common.Address) ([]common.Address, error)
}

// ClaimEncoder builds release calldata.
type ClaimEncoder interface {
	EncodeRelease(plan domain.ClaimPlan) ([]byte, error)
}

// Pricer is the pricing context as seen from the jar.
type Pricer interface {
	USDPrices(ctx context.Context, assets []*asset.Asset) (map[common.Address]asset.USDPrice, error)
	ETHUSD(ctx context.Context) (asset.USDPrice, error)
}

// Chain is the blockchain context as seen from the jar.
type Chain interface {
	GetGasPrice(ctx context.Context) (*blockchainDomain.GasPrice, error)
	LatestBlock(ctx context.Context) (*blockchainDomain.Block, error)
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)
}

// HeadSource streams new chain heads.
type HeadSource interface {
	WatchHeads(ctx context.Context) (<-chan *blockchainDomain.Block, error)
}

// Reporter receives every evaluation the monitor makes.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report publishes one evaluation.
	Report(ctx context.Context, ev *Evaluation)

	// ReportError publishes a failed evaluation.
	ReportError(ctx context.Context, err error)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
