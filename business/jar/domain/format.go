package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TokenBreakdown is the public view of one claimable token.
type TokenBreakdown struct {
	Address  string `json:"address" yaml:"address"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Balance  string `json:"balance" yaml:"balance"`
	ValueUSD string `json:"valueUSD" yaml:"valueUSD"`
}

// FormattedResult is the display contract shared by the API, the
// websocket stream and the terminal UI. Booleans stay native.
type FormattedResult struct {
	ResourceAmount    string           `json:"resourceAmount" yaml:"resourceAmount"`
	ResourceCostUSD   string           `json:"resourceCostUSD" yaml:"resourceCostUSD"`
	ClaimableValueUSD string           `json:"claimableValueUSD" yaml:"claimableValueUSD"`
	GasCostUSD        string           `json:"gasCostUSD" yaml:"gasCostUSD"`
	GrossProfitUSD    string           `json:"grossProfitUSD" yaml:"grossProfitUSD"`
	NetProfitUSD      string           `json:"netProfitUSD" yaml:"netProfitUSD"`
	ProfitPercent     string           `json:"profitPercent" yaml:"profitPercent"`
	MinimumOutputUSD  string           `json:"minimumOutputUSD" yaml:"minimumOutputUSD"`
	IsProfitable      bool             `json:"isProfitable" yaml:"isProfitable"`
	MeetsThreshold    bool             `json:"meetsThreshold" yaml:"meetsThreshold"`
	EstimatedGas      uint64           `json:"estimatedGas" yaml:"estimatedGas"`
	TokenBreakdown    []TokenBreakdown `json:"tokenBreakdown" yaml:"tokenBreakdown"`
	DustCount         int              `json:"dustCount" yaml:"dustCount"`
	SavedGas          string           `json:"savedGas" yaml:"savedGas"`
	Filtered          bool             `json:"filtered" yaml:"filtered"`
}

// USD formats an amount as "$" plus two decimals, e.g. "$-13513.20".
func USD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Percent formats a percentage with two decimals and a "%" suffix.
func Percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// TokenAmount formats a whole-token quantity with six decimals.
func TokenAmount(d decimal.Decimal) string {
	return d.StringFixed(6)
}

// ParseUSD reverses USD.
func ParseUSD(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimPrefix(s, "$"))
}

// ParsePercent reverses Percent.
func ParsePercent(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSuffix(s, "%"))
}

// Format maps a ProfitResult onto display strings. Raw balances and
// per-token claim cost stay behind this boundary.
func Format(r ProfitResult) FormattedResult {
	breakdown := make([]TokenBreakdown, 0, len(r.Claimable))
	for _, t := range r.Claimable {
		breakdown = append(breakdown, TokenBreakdown{
			Address:  t.Address().Hex(),
			Symbol:   t.Symbol(),
			Balance:  TokenAmount(t.BalanceWhole),
			ValueUSD: USD(t.ValueUSD),
		})
	}

	return FormattedResult{
		ResourceAmount:    TokenAmount(r.ResourceAmountWhole),
		ResourceCostUSD:   USD(r.ResourceCostUSD),
		ClaimableValueUSD: USD(r.ClaimableValueUSD),
		GasCostUSD:        USD(r.GasCostUSD),
		GrossProfitUSD:    USD(r.GrossProfitUSD),
		NetProfitUSD:      USD(r.NetProfitUSD),
		ProfitPercent:     Percent(r.ProfitPercent),
		MinimumOutputUSD:  USD(r.MinimumOutputUSD),
		IsProfitable:      r.IsProfitable,
		MeetsThreshold:    r.MeetsThreshold,
		EstimatedGas:      r.EstimatedGasUnits,
		TokenBreakdown:    breakdown,
		DustCount:         len(r.Dust),
		SavedGas:          USD(r.SavedGasUSD),
		Filtered:          len(r.Dust) > 0,
	}
}
