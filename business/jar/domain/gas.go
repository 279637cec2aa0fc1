package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

const (
	DefaultTransferGasUnits = 60_000
	DefaultBaseGasUnits     = 100_000
)

// DefaultSlippageTolerance is the 0.5% floor applied to claimable value.
var DefaultSlippageTolerance = decimal.RequireFromString("0.005")

// EngineConfig holds the gas model and slippage floor.
type EngineConfig struct {
	TransferGasUnits  uint64          // marginal gas per claimed token
	BaseGasUnits      uint64          // fixed overhead of a release call
	SlippageTolerance decimal.Decimal // fraction in [0, 1)
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TransferGasUnits:  DefaultTransferGasUnits,
		BaseGasUnits:      DefaultBaseGasUnits,
		SlippageTolerance: DefaultSlippageTolerance,
	}
}

func (c EngineConfig) Validate() error {
	if c.TransferGasUnits == 0 {
		return apperror.Validation(apperror.CodeInvalidEngineConfig, "transfer gas units must be positive")
	}
	if c.BaseGasUnits == 0 {
		return apperror.Validation(apperror.CodeInvalidEngineConfig, "base gas units must be positive")
	}
	if c.SlippageTolerance.IsNegative() || c.SlippageTolerance.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return apperror.Validation(apperror.CodeInvalidEngineConfig, "slippage tolerance must be in [0, 1)")
	}
	return nil
}

// GasContext is the market state that prices gas in USD.
type GasContext struct {
	gasPriceGwei decimal.Decimal
	ethUSD       decimal.Decimal
}

// NewGasContext validates gwei >= 0 and ETH/USD > 0.
func NewGasContext(gasPriceGwei, ethUSD decimal.Decimal) (GasContext, error) {
	if gasPriceGwei.IsNegative() {
		return GasContext{}, apperror.Validation(apperror.CodeInvalidGasContext, "gas price must not be negative")
	}
	if !ethUSD.IsPositive() {
		return GasContext{}, apperror.Validation(apperror.CodeInvalidGasContext, "ETH price must be positive")
	}
	return GasContext{gasPriceGwei: gasPriceGwei, ethUSD: ethUSD}, nil
}

// GasContextFromWei builds a GasContext from an on-chain wei gas price.
func GasContextFromWei(gasPriceWei *big.Int, ethUSD decimal.Decimal) (GasContext, error) {
	if gasPriceWei == nil {
		return GasContext{}, apperror.Validation(apperror.CodeInvalidGasContext, "gas price missing")
	}
	return NewGasContext(decimal.NewFromBigInt(gasPriceWei, -9), ethUSD)
}

func (g GasContext) GasPriceGwei() decimal.Decimal { return g.gasPriceGwei }
func (g GasContext) EthUSD() decimal.Decimal { return g.ethUSD }

// valid reports whether g came from NewGasContext.
func (g GasContext) valid() bool {
	return g.ethUSD.IsPositive() && !g.gasPriceGwei.IsNegative()
}

// CostUSD prices units of gas: units * (gwei / 1e9) * ETH/USD.
func (g GasContext) CostUSD(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), 0).Mul(g.gasPriceGwei.Shift(-9)).Mul(g.ethUSD)
}
