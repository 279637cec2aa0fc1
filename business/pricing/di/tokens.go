// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/feejar-monitor/business/pricing/app"
	"github.com/fd1az/feejar-monitor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	PriceFeed     = di.NewToken[app.PriceFeed]("pricing:priceFeed")
	SpotTicker    = di.NewToken[app.SpotTicker]("pricing:spotTicker")
	OnChainQuoter = di.NewToken[app.OnChainQuoter]("pricing:onChainQuoter")
)

func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetPriceFeed(c di.ServiceRegistry) app.PriceFeed {
	return di.GetToken(c, PriceFeed)
}

func GetSpotTicker(c di.ServiceRegistry) app.SpotTicker {
	return di.GetToken(c, SpotTicker)
}

func GetOnChainQuoter(c di.ServiceRegistry) app.OnChainQuoter {
	return di.GetToken(c, OnChainQuoter)
}
