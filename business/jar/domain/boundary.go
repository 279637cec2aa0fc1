package domain

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

// DecimalFromFloat converts a float received at an API boundary. NaN and
// infinities are rejected so they never reach decimal arithmetic.
func DecimalFromFloat(field string, f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidInput, field+" must be finite")
	}
	return decimal.NewFromFloat(f), nil
}

// ParseAmount parses a base-10 integer string in smallest units.
func ParseAmount(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidFormat, field+" must be a base-10 integer")
	}
	if v.Sign() < 0 {
		return nil, apperror.Validation(apperror.CodeInvalidBalance, field+" must not be negative")
	}
	return v, nil
}
