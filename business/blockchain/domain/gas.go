package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// GasPrice is a suggested gas price.
type GasPrice struct {
	Wei       *big.Int
	Gwei      decimal.Decimal
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Gwei:      decimal.NewFromBigInt(wei, -9),
		Timestamp: time.Now(),
	}
}

// GasEstimate is a gas limit priced at a given gas price.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
}

// NewGasEstimate computes the total cost of gasLimit at gasPrice.
func NewGasEstimate(gasLimit uint64, gasPrice *GasPrice) *GasEstimate {
	total := new(big.Int).Mul(gasPrice.Wei, new(big.Int).SetUint64(gasLimit))
	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		TotalWei: total,
	}
}

// TotalETH is the total cost in ether.
func (e *GasEstimate) TotalETH() decimal.Decimal {
	return decimal.NewFromBigInt(e.TotalWei, -18)
}
