package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	addrUSDC     = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	addrWETH     = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	addrDust     = "0x00000000000000000000000000000000000d0570"
	addrResource = "0x1111111111111111111111111111111111111111"
)

func bigInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int %q", s)
	}
	return v
}

// scenarioTokens is USDC $500, DUST ~$0 and WETH $6000.
func scenarioTokens(t *testing.T) []TokenBalance {
	t.Helper()
	return []TokenBalance{
		MustTokenBalance(addrUSDC, "USDC", big.NewInt(500_000000), 6, decimal.RequireFromString("1.0")),
		MustTokenBalance(addrDust, "DUST", big.NewInt(1), 18, decimal.RequireFromString("0.000001")),
		MustTokenBalance(addrWETH, "WETH", bigInt(t, "2000000000000000000"), 18, decimal.RequireFromString("3000")),
	}
}

// scenarioGas is 20 gwei at $3000/ETH.
func scenarioGas(t *testing.T) GasContext {
	t.Helper()
	g, err := NewGasContext(decimal.NewFromInt(20), decimal.NewFromInt(3000))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// scenarioResource is an 18-decimal token at $5.
func scenarioResource(t *testing.T) Resource {
	t.Helper()
	r, err := NewResource(common.HexToAddress(addrResource), "RSRC", 18, decimal.NewFromInt(5))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// threshold4000 is 4000 whole resource tokens.
func threshold4000(t *testing.T) *big.Int {
	return bigInt(t, "4000000000000000000000")
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultEngineConfig())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got.String(), want)
	}
}
