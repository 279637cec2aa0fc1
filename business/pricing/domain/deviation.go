package domain

import "github.com/shopspring/decimal"

var bpsFactor = decimal.NewFromInt(10000)

// Deviation compares a reference price against a second source.
type Deviation struct {
	Reference   decimal.Decimal
	Other       decimal.Decimal
	Absolute    decimal.Decimal // Other - Reference
	BasisPoints decimal.Decimal // Absolute / Reference * 10000
}

// NewDeviation computes how far other sits from reference.
func NewDeviation(reference, other decimal.Decimal) Deviation {
	absolute := other.Sub(reference)
	bps := decimal.Zero
	if !reference.IsZero() {
		bps = absolute.Div(reference).Mul(bpsFactor)
	}

	return Deviation{
		Reference:   reference,
		Other:       other,
		Absolute:    absolute,
		BasisPoints: bps,
	}
}

// Exceeds reports whether |BasisPoints| is above maxBps.
func (d Deviation) Exceeds(maxBps decimal.Decimal) bool {
	return d.BasisPoints.Abs().GreaterThan(maxBps)
}
