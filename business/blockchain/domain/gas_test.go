package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewGasPrice(t *testing.T) {
	p := NewGasPrice(big.NewInt(20_000_000_000))
	if !p.Gwei.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Gwei = %s, want 20", p.Gwei)
	}

	p = NewGasPrice(big.NewInt(1_500_000_001))
	if !p.Gwei.Equal(decimal.RequireFromString("1.500000001")) {
		t.Errorf("Gwei = %s, want 1.500000001", p.Gwei)
	}
}

func TestNewGasEstimate(t *testing.T) {
	e := NewGasEstimate(220_000, NewGasPrice(big.NewInt(20_000_000_000)))

	if e.TotalWei.String() != "4400000000000000" {
		t.Errorf("TotalWei = %s", e.TotalWei)
	}
	if !e.TotalETH().Equal(decimal.RequireFromString("0.0044")) {
		t.Errorf("TotalETH = %s, want 0.0044", e.TotalETH())
	}
}
