package asset

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNegativePrice = errors.New("asset: negative price")

// USDPrice is the USD value of one whole unit of an asset, as observed by a source.
type USDPrice struct {
	asset     *Asset
	usd       decimal.Decimal
	source    string
	timestamp time.Time
}

// NewUSDPrice creates a price observation.
func NewUSDPrice(a *Asset, usd decimal.Decimal, source string, at time.Time) (USDPrice, error) {
	if a == nil {
		return USDPrice{}, ErrNilAsset
	}
	if usd.IsNegative() {
		return USDPrice{}, fmt.Errorf("%w: %s %s", ErrNegativePrice, a.Symbol(), usd)
	}
	return USDPrice{asset: a, usd: usd, source: source, timestamp: at}, nil
}

func (p USDPrice) Asset() *Asset { return p.asset }
func (p USDPrice) USD() decimal.Decimal { return p.usd }
func (p USDPrice) Source() string { return p.source }
func (p USDPrice) Timestamp() time.Time { return p.timestamp }
func (p USDPrice) IsZero() bool { return p.usd.IsZero() }

// Value returns the USD value of amount at this price.
func (p USDPrice) Value(amount Amount) (decimal.Decimal, error) {
	if !p.asset.Equals(amount.Asset()) {
		return decimal.Zero, fmt.Errorf("%w: price for %s, amount in %s", ErrAssetMismatch, p.asset, amount.Asset())
	}
	return amount.ToDecimal().Mul(p.usd), nil
}

// IsStale returns true if the price is older than maxAge.
func (p USDPrice) IsStale(maxAge time.Duration) bool {
	return time.Since(p.timestamp) > maxAge
}

func (p USDPrice) String() string {
	return fmt.Sprintf("%s $%s (%s)", p.asset, p.usd.String(), p.source)
}
