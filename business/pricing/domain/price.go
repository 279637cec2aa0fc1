// Package domain contains the core domain types for the pricing context.
package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Price sources, recorded on every asset.USDPrice.
const (
	SourceFeed   = "coingecko"
	SourceTicker = "binance"
	SourceQuoter = "uniswap"
	SourceNone   = "none"
)

// Quote is an on-chain swap quote.
type Quote struct {
	TokenIn     common.Address
	TokenOut    common.Address
	AmountIn    *big.Int
	AmountOut   *big.Int
	GasEstimate uint64
	FeeTier     int // hundredths of a bip, 3000 = 0.30%
	Timestamp   time.Time
}

// FeeTierPercent returns the fee tier as a percentage string (e.g., "0.30%").
func (q Quote) FeeTierPercent() string {
	return fmt.Sprintf("%.2f%%", float64(q.FeeTier)/10000.0)
}

// Rate is AmountOut per AmountIn in whole units.
func (q Quote) Rate(decimalsIn, decimalsOut uint8) decimal.Decimal {
	if q.AmountIn == nil || q.AmountIn.Sign() == 0 || q.AmountOut == nil {
		return decimal.Zero
	}
	in := decimal.NewFromBigInt(q.AmountIn, -int32(decimalsIn))
	out := decimal.NewFromBigInt(q.AmountOut, -int32(decimalsOut))
	return out.Div(in)
}
