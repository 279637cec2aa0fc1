// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/feejar-monitor/business/blockchain/app"
	"github.com/fd1az/feejar-monitor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	HeadWatcher = di.NewToken[app.HeadWatcher]("blockchain:headWatcher")
	GasOracle   = di.NewToken[app.GasOracle]("blockchain:gasOracle")
)

func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetHeadWatcher(c di.ServiceRegistry) app.HeadWatcher {
	return di.GetToken(c, HeadWatcher)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
