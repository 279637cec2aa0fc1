// Package domain contains the profitability engine of the jar context:
// dust filtering, profit calculation, burn selection and display formatting.
// Every function here is pure; collaborators fetch the inputs.
package domain

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

// MaxDecimals bounds token decimals to what an ERC-20 uint8 can express.
const MaxDecimals = math.MaxUint8

// TokenBalance is one jar holding. It is immutable once constructed.
type TokenBalance struct {
	address  common.Address
	symbol   string
	balance  *big.Int
	decimals uint8
	price    decimal.Decimal
}

// NewTokenBalance validates and builds a TokenBalance. The address is
// accepted in any case; balance is in the token's smallest unit and price
// is USD per whole token.
func NewTokenBalance(address, symbol string, balance *big.Int, decimals int, price decimal.Decimal) (TokenBalance, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return TokenBalance{}, apperror.Validation(apperror.CodeInvalidAddress, address)
	}
	if balance == nil || balance.Sign() < 0 {
		return TokenBalance{}, apperror.Validation(apperror.CodeInvalidBalance, symbol)
	}
	if decimals < 0 || decimals > MaxDecimals {
		return TokenBalance{}, apperror.Validation(apperror.CodeInvalidDecimals, fmt.Sprintf("%s: %d", symbol, decimals))
	}
	if price.IsNegative() {
		return TokenBalance{}, apperror.Validation(apperror.CodeInvalidPrice, fmt.Sprintf("%s: %s", symbol, price))
	}

	return TokenBalance{
		address:  common.HexToAddress(address),
		symbol:   symbol,
		balance:  new(big.Int).Set(balance),
		decimals: uint8(decimals),
		price:    price,
	}, nil
}

// MustTokenBalance is NewTokenBalance that panics; for fixtures.
func MustTokenBalance(address, symbol string, balance *big.Int, decimals int, price decimal.Decimal) TokenBalance {
	t, err := NewTokenBalance(address, symbol, balance, decimals, price)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TokenBalance) Address() common.Address { return t.address }
func (t TokenBalance) Symbol() string { return t.symbol }
func (t TokenBalance) Decimals() uint8 { return t.decimals }
func (t TokenBalance) Price() decimal.Decimal { return t.price }

// Balance returns a copy of the raw balance.
func (t TokenBalance) Balance() *big.Int {
	return new(big.Int).Set(t.balance)
}

func (t TokenBalance) valid() bool { return t.balance != nil }

// BalanceWhole is balance / 10^decimals. The conversion is exact.
func (t TokenBalance) BalanceWhole() decimal.Decimal {
	return decimal.NewFromBigInt(t.balance, -int32(t.decimals))
}

// ValueUSD is BalanceWhole * price.
func (t TokenBalance) ValueUSD() decimal.Decimal {
	return t.BalanceWhole().Mul(t.price)
}

// WithPrice returns a copy priced at p.
func (t TokenBalance) WithPrice(p decimal.Decimal) (TokenBalance, error) {
	if p.IsNegative() {
		return TokenBalance{}, apperror.Validation(apperror.CodeInvalidPrice, t.symbol)
	}
	t.price = p
	return t, nil
}

// Resource is the token burned to release the jar.
type Resource struct {
	address  common.Address
	symbol   string
	decimals uint8
	priceUSD decimal.Decimal
}

// NewResource validates the resource token description.
func NewResource(address common.Address, symbol string, decimals int, priceUSD decimal.Decimal) (Resource, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return Resource{}, apperror.Validation(apperror.CodeInvalidDecimals, fmt.Sprintf("resource: %d", decimals))
	}
	if priceUSD.IsNegative() {
		return Resource{}, apperror.Validation(apperror.CodeInvalidPrice, "resource")
	}
	return Resource{address: address, symbol: symbol, decimals: uint8(decimals), priceUSD: priceUSD}, nil
}

func (r Resource) Address() common.Address { return r.address }
func (r Resource) Symbol() string { return r.symbol }
func (r Resource) Decimals() uint8 { return r.decimals }
func (r Resource) PriceUSD() decimal.Decimal { return r.priceUSD }

// Whole converts a raw resource amount to whole tokens.
func (r Resource) Whole(raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(r.decimals))
}
