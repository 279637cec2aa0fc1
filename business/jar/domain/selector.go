package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

// BurnSelection is the chosen burn and its valuation.
type BurnSelection struct {
	ResourceAmountWhole decimal.Decimal
	ResourceAmountRaw   *big.Int
	Result              ProfitResult
}

// SelectOptimalBurn burns exactly the threshold. The release pays out the
// whole jar for any burn at or above threshold, so a larger burn is always
// dominated; no search over amounts is performed.
func (e *Engine) SelectOptimalBurn(tokens []TokenBalance, resource Resource, threshold *big.Int, gas GasContext) (BurnSelection, error) {
	if threshold == nil || threshold.Sign() <= 0 {
		return BurnSelection{}, apperror.Validation(apperror.CodeInvalidThreshold, "threshold must be positive")
	}

	p, err := e.Partition(tokens, gas)
	if err != nil {
		return BurnSelection{}, err
	}

	result, err := e.CalculateProfit(p, resource, threshold, threshold, gas)
	if err != nil {
		return BurnSelection{}, err
	}

	return BurnSelection{
		ResourceAmountWhole: result.ResourceAmountWhole,
		ResourceAmountRaw:   new(big.Int).Set(threshold),
		Result:              result,
	}, nil
}
