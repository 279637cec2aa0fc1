package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

var hundred = decimal.NewFromInt(100)

// ProfitResult is the full valuation of one release at a given burn amount.
type ProfitResult struct {
	ResourceAmountWhole decimal.Decimal
	ResourceCostUSD     decimal.Decimal
	ClaimableValueUSD   decimal.Decimal
	GasCostUSD          decimal.Decimal
	GrossProfitUSD      decimal.Decimal
	NetProfitUSD        decimal.Decimal
	ProfitPercent       decimal.Decimal
	MinimumOutputUSD    decimal.Decimal
	IsProfitable        bool
	MeetsThreshold      bool
	Claimable           []ClassifiedToken
	Dust                []ClassifiedToken
	EstimatedGasUnits   uint64
	PerTransferCostUSD  decimal.Decimal
	SavedGasUSD         decimal.Decimal
}

// CalculateProfit values burning amount of the resource to claim the
// partition's claimable tokens. Dust never contributes value or gas.
// An empty claimable set is a valid, unprofitable result.
func (e *Engine) CalculateProfit(p Partition, resource Resource, amount, threshold *big.Int, gas GasContext) (ProfitResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return ProfitResult{}, apperror.Validation(apperror.CodeInvalidResourceAmount, "resource amount must be positive")
	}
	if threshold == nil || threshold.Sign() <= 0 {
		return ProfitResult{}, apperror.Validation(apperror.CodeInvalidThreshold, "threshold must be positive")
	}
	if !gas.valid() {
		return ProfitResult{}, apperror.Validation(apperror.CodeInvalidGasContext, "gas context not initialised")
	}

	resourceWhole := resource.Whole(amount)
	resourceCost := resourceWhole.Mul(resource.PriceUSD())
	claimableValue := p.ClaimableValueUSD()

	gasUnits := e.cfg.BaseGasUnits + uint64(len(p.Claimable))*e.cfg.TransferGasUnits
	gasCost := gas.CostUSD(gasUnits)

	gross := claimableValue.Sub(resourceCost)
	net := gross.Sub(gasCost)

	percent := decimal.Zero
	if resourceCost.IsPositive() {
		percent = net.Div(resourceCost).Mul(hundred)
	}

	perTransfer := e.PerTransferCostUSD(gas)

	return ProfitResult{
		ResourceAmountWhole: resourceWhole,
		ResourceCostUSD:     resourceCost,
		ClaimableValueUSD:   claimableValue,
		GasCostUSD:          gasCost,
		GrossProfitUSD:      gross,
		NetProfitUSD:        net,
		ProfitPercent:       percent,
		MinimumOutputUSD:    claimableValue.Mul(decimal.NewFromInt(1).Sub(e.cfg.SlippageTolerance)),
		IsProfitable:        net.IsPositive(),
		MeetsThreshold:      resourceWhole.GreaterThanOrEqual(resource.Whole(threshold)),
		Claimable:           p.Claimable,
		Dust:                p.Dust,
		EstimatedGasUnits:   gasUnits,
		PerTransferCostUSD:  perTransfer,
		SavedGasUSD:         perTransfer.Mul(decimal.NewFromInt(int64(len(p.Dust)))),
	}, nil
}
