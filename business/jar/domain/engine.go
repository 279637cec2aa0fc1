package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

// ClassifiedToken is a TokenBalance with its valuation against claim cost.
type ClassifiedToken struct {
	TokenBalance
	BalanceWhole   decimal.Decimal
	ValueUSD       decimal.Decimal
	CostToClaimUSD decimal.Decimal
}

// Claimable reports the strict classification rule: value > cost.
func (c ClassifiedToken) Claimable() bool {
	return c.ValueUSD.GreaterThan(c.CostToClaimUSD)
}

// Partition splits a snapshot into tokens worth claiming and dust.
// Input order is kept within each side.
type Partition struct {
	Claimable          []ClassifiedToken
	Dust               []ClassifiedToken
	PerTransferCostUSD decimal.Decimal
}

// Len is the number of classified tokens.
func (p Partition) Len() int {
	return len(p.Claimable) + len(p.Dust)
}

// ClaimableValueUSD sums the value of claimable tokens only.
func (p Partition) ClaimableValueUSD() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range p.Claimable {
		sum = sum.Add(t.ValueUSD)
	}
	return sum
}

// Engine is the gas arbitration engine. It holds only configuration and
// is safe for concurrent use.
type Engine struct {
	cfg EngineConfig
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// PerTransferCostUSD is the marginal USD cost of claiming one more token.
func (e *Engine) PerTransferCostUSD(gas GasContext) decimal.Decimal {
	return gas.CostUSD(e.cfg.TransferGasUnits)
}

// Partition classifies every token against the per-transfer cost. A token
// is claimable only if its value strictly exceeds that cost, so ties and
// unpriced tokens are dust. An empty snapshot yields an empty partition.
func (e *Engine) Partition(tokens []TokenBalance, gas GasContext) (Partition, error) {
	if !gas.valid() {
		return Partition{}, apperror.Validation(apperror.CodeInvalidGasContext, "gas context not initialised")
	}

	cost := e.PerTransferCostUSD(gas)
	p := Partition{
		Claimable:          make([]ClassifiedToken, 0, len(tokens)),
		Dust:               make([]ClassifiedToken, 0),
		PerTransferCostUSD: cost,
	}

	for i, t := range tokens {
		if !t.valid() {
			return Partition{}, apperror.Validation(apperror.CodeInvalidBalance, fmt.Sprintf("token %d has no balance", i))
		}
		whole := t.BalanceWhole()
		ct := ClassifiedToken{
			TokenBalance:   t,
			BalanceWhole:   whole,
			ValueUSD:       whole.Mul(t.Price()),
			CostToClaimUSD: cost,
		}
		if ct.Claimable() {
			p.Claimable = append(p.Claimable, ct)
		} else {
			p.Dust = append(p.Dust, ct)
		}
	}

	return p, nil
}
