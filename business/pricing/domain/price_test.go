package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewDeviation(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		other     string
		wantBps   string
		exceeds   bool
	}{
		{"above", "3000", "3030", "100", false},
		{"below", "3000", "2940", "-200", true},
		{"equal", "3000", "3000", "0", false},
		{"zero_reference", "0", "3000", "0", false},
	}

	maxBps := decimal.NewFromInt(150)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeviation(decimal.RequireFromString(tt.reference), decimal.RequireFromString(tt.other))
			if !d.BasisPoints.Equal(decimal.RequireFromString(tt.wantBps)) {
				t.Errorf("BasisPoints = %s, want %s", d.BasisPoints, tt.wantBps)
			}
			if d.Exceeds(maxBps) != tt.exceeds {
				t.Errorf("Exceeds = %v, want %v", d.Exceeds(maxBps), tt.exceeds)
			}
		})
	}
}

func TestQuote_Rate(t *testing.T) {
	// 1 WETH -> 3012.5 USDC
	q := Quote{
		AmountIn:  new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		AmountOut: big.NewInt(3_012_500_000),
		FeeTier:   500,
	}

	if got := q.Rate(18, 6); !got.Equal(decimal.RequireFromString("3012.5")) {
		t.Errorf("Rate = %s, want 3012.5", got)
	}
	if got := q.FeeTierPercent(); got != "0.05%" {
		t.Errorf("FeeTierPercent = %s, want 0.05%%", got)
	}
	if got := (Quote{}).Rate(18, 6); !got.IsZero() {
		t.Errorf("empty quote rate = %s", got)
	}
}
