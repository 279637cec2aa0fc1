package domain

import (
	"math"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

func TestNewTokenBalance_Validation(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		balance  *big.Int
		decimals int
		price    string
		wantCode apperror.Code
	}{
		{"valid_lowercase", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", big.NewInt(1), 6, "1", ""},
		{"valid_zero_balance", addrUSDC, big.NewInt(0), 6, "1", ""},
		{"valid_zero_price", addrUSDC, big.NewInt(5), 6, "0", ""},
		{"short_address", "0x1234", big.NewInt(1), 6, "1", apperror.CodeInvalidAddress},
		{"no_prefix_garbage", "hello", big.NewInt(1), 6, "1", apperror.CodeInvalidAddress},
		{"nil_balance", addrUSDC, nil, 6, "1", apperror.CodeInvalidBalance},
		{"negative_balance", addrUSDC, big.NewInt(-1), 6, "1", apperror.CodeInvalidBalance},
		{"negative_decimals", addrUSDC, big.NewInt(1), -1, "1", apperror.CodeInvalidDecimals},
		{"decimals_over_uint8", addrUSDC, big.NewInt(1), 256, "1", apperror.CodeInvalidDecimals},
		{"negative_price", addrUSDC, big.NewInt(1), 6, "-0.01", apperror.CodeInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenBalance(tt.address, "TKN", tt.balance, tt.decimals, decimal.RequireFromString(tt.price))
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := apperror.GetCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s (err %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestTokenBalance_Immutable(t *testing.T) {
	raw := big.NewInt(100)
	tok := MustTokenBalance(addrUSDC, "USDC", raw, 6, decimal.NewFromInt(1))

	raw.SetInt64(999)
	if tok.Balance().Int64() != 100 {
		t.Errorf("constructor did not copy balance: %s", tok.Balance())
	}

	tok.Balance().SetInt64(7)
	if tok.Balance().Int64() != 100 {
		t.Errorf("Balance() leaked internal pointer: %s", tok.Balance())
	}
}

func TestTokenBalance_ExactWholeConversion(t *testing.T) {
	// 2^256-1 wei does not survive a float64 round trip
	maxBal := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	tok := MustTokenBalance(addrWETH, "WETH", maxBal, 18, decimal.NewFromInt(1))

	if back := tok.BalanceWhole().Shift(18).BigInt(); back.Cmp(maxBal) != 0 {
		t.Errorf("BalanceWhole lost precision: %s", back)
	}
}

func TestDecimalFromFloat(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := DecimalFromFloat("price", f); apperror.GetCode(err) != apperror.CodeInvalidInput {
			t.Errorf("DecimalFromFloat(%v) err = %v, want INVALID_INPUT", f, err)
		}
	}

	d, err := DecimalFromFloat("price", 3000.25)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "price", d, "3000.25")
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("threshold", " 4000000000000000000000 ")
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "4000000000000000000000" {
		t.Errorf("ParseAmount = %s", v)
	}

	if _, err := ParseAmount("balance", "1.5"); apperror.GetCode(err) != apperror.CodeInvalidFormat {
		t.Errorf("fractional amount err = %v", err)
	}
	if _, err := ParseAmount("balance", "-3"); apperror.GetCode(err) != apperror.CodeInvalidBalance {
		t.Errorf("negative amount err = %v", err)
	}
}
