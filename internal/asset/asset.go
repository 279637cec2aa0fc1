// Package asset models the ERC-20 tokens held by the jar.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used at boundaries (pricing, display).
package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrEmptySymbol = errors.New("asset: empty symbol")
	ErrZeroAddress = errors.New("asset: zero address is reserved for the native coin")
	ErrInvalidHex  = errors.New("asset: invalid hex address")
)

// Asset is the metadata of a token on the monitored chain.
// The contract address is the identity; the symbol is display only.
type Asset struct {
	address  common.Address
	symbol   string
	name     string
	decimals uint8
}

// New creates a token asset. Use Native for the chain's coin.
func New(address common.Address, symbol string, decimals uint8) (*Asset, error) {
	if address == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	return &Asset{address: address, symbol: symbol, decimals: decimals}, nil
}

// FromHex parses a hex address (any case) and creates a token asset.
func FromHex(hex, symbol string, decimals uint8) (*Asset, error) {
	if !common.IsHexAddress(hex) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, hex)
	}
	return New(common.HexToAddress(hex), symbol, decimals)
}

// MustNew is New for package-level well-known tokens.
func MustNew(address common.Address, symbol, name string, decimals uint8) *Asset {
	a, err := New(address, symbol, decimals)
	if err != nil {
		panic(err)
	}
	a.name = name
	return a
}

// Native creates the native coin asset (zero address).
func Native(symbol, name string, decimals uint8) *Asset {
	return &Asset{symbol: symbol, name: name, decimals: decimals}
}

// Address returns the token contract address (zero for the native coin).
func (a *Asset) Address() common.Address {
	return a.address
}

// Symbol returns the ticker symbol (e.g., "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// IsNative reports whether this is the chain's native coin.
func (a *Asset) IsNative() bool {
	return a.address == (common.Address{})
}

func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two assets by address.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.address == other.address
}
