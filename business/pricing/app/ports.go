// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/asset"
)

// PriceFeed is a REST price aggregator keyed by contract address.
type PriceFeed interface {
	// TokenPricesUSD prices the given contracts. Tokens the feed does not
	// know are absent from the result.
	TokenPricesUSD(ctx context.Context, tokens []common.Address) (map[common.Address]decimal.Decimal, error)

	// ETHPriceUSD returns the native asset price.
	ETHPriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// SpotTicker is an exchange ticker for the native asset.
type SpotTicker interface {
	ETHPriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// OnChainQuoter prices one whole token by quoting it into a USD stablecoin.
type OnChainQuoter interface {
	QuoteUSD(ctx context.Context, token *asset.Asset) (decimal.Decimal, error)
}
