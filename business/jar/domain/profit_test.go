package domain

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

func TestCalculateProfit_Scenario(t *testing.T) {
	e := defaultEngine(t)
	gas := scenarioGas(t)

	p, err := e.Partition(scenarioTokens(t), gas)
	if err != nil {
		t.Fatal(err)
	}

	r, err := e.CalculateProfit(p, scenarioResource(t), threshold4000(t), threshold4000(t), gas)
	if err != nil {
		t.Fatalf("CalculateProfit: %v", err)
	}

	assertDecimal(t, "ResourceAmountWhole", r.ResourceAmountWhole, "4000")
	assertDecimal(t, "ResourceCostUSD", r.ResourceCostUSD, "20000")
	assertDecimal(t, "ClaimableValueUSD", r.ClaimableValueUSD, "6500")
	assertDecimal(t, "GasCostUSD", r.GasCostUSD, "13.2")
	assertDecimal(t, "GrossProfitUSD", r.GrossProfitUSD, "-13500")
	assertDecimal(t, "NetProfitUSD", r.NetProfitUSD, "-13513.2")
	assertDecimal(t, "ProfitPercent", r.ProfitPercent, "-67.566")
	assertDecimal(t, "MinimumOutputUSD", r.MinimumOutputUSD, "6467.5")
	assertDecimal(t, "SavedGasUSD", r.SavedGasUSD, "3.6")

	if r.EstimatedGasUnits != 220_000 {
		t.Errorf("EstimatedGasUnits = %d, want 220000", r.EstimatedGasUnits)
	}
	if r.IsProfitable {
		t.Error("IsProfitable = true, want false")
	}
	if !r.MeetsThreshold {
		t.Error("MeetsThreshold = false, want true")
	}
}

func TestCalculateProfit_ProfitableWhenResourceIsCheap(t *testing.T) {
	e := defaultEngine(t)
	gas := scenarioGas(t)
	p, _ := e.Partition(scenarioTokens(t), gas)

	cheap, err := NewResource(scenarioResource(t).Address(), "RSRC", 18, decimal.RequireFromString("1.5"))
	if err != nil {
		t.Fatal(err)
	}

	r, err := e.CalculateProfit(p, cheap, threshold4000(t), threshold4000(t), gas)
	if err != nil {
		t.Fatal(err)
	}

	// 6500 - 6000 - 13.2
	assertDecimal(t, "NetProfitUSD", r.NetProfitUSD, "486.8")
	if !r.IsProfitable {
		t.Error("IsProfitable = false, want true")
	}
}

func TestCalculateProfit_EmptyClaimableSet(t *testing.T) {
	e := defaultEngine(t)
	gas := scenarioGas(t)

	dustOnly := []TokenBalance{scenarioTokens(t)[1]}
	p, err := e.Partition(dustOnly, gas)
	if err != nil {
		t.Fatal(err)
	}

	r, err := e.CalculateProfit(p, scenarioResource(t), threshold4000(t), threshold4000(t), gas)
	if err != nil {
		t.Fatalf("empty claimable set must not error: %v", err)
	}

	baseGasCost := gas.CostUSD(DefaultBaseGasUnits) // $6
	want := r.ResourceCostUSD.Neg().Sub(baseGasCost)
	if !r.NetProfitUSD.Equal(want) {
		t.Errorf("NetProfitUSD = %s, want %s", r.NetProfitUSD, want)
	}
	assertDecimal(t, "NetProfitUSD", r.NetProfitUSD, "-20006")
	assertDecimal(t, "ClaimableValueUSD", r.ClaimableValueUSD, "0")
	assertDecimal(t, "GrossProfitUSD", r.GrossProfitUSD, "-20000")
	if r.IsProfitable {
		t.Error("IsProfitable = true, want false")
	}
	if r.EstimatedGasUnits != DefaultBaseGasUnits {
		t.Errorf("EstimatedGasUnits = %d, want base only", r.EstimatedGasUnits)
	}
}

func TestCalculateProfit_ZeroResourcePriceReportsZeroPercent(t *testing.T) {
	e := defaultEngine(t)
	gas := scenarioGas(t)
	p, _ := e.Partition(scenarioTokens(t), gas)

	free, err := NewResource(scenarioResource(t).Address(), "RSRC", 18, decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}

	r, err := e.CalculateProfit(p, free, threshold4000(t), threshold4000(t), gas)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "ProfitPercent", r.ProfitPercent, "0")
	assertDecimal(t, "NetProfitUSD", r.NetProfitUSD, "6486.8")
}

func TestCalculateProfit_MeetsThresholdIsIndependent(t *testing.T) {
	e := defaultEngine(t)
	gas := scenarioGas(t)
	p, _ := e.Partition(scenarioTokens(t), gas)

	below := bigInt(t, "3999999999999999999999")
	r, err := e.CalculateProfit(p, scenarioResource(t), below, threshold4000(t), gas)
	if err != nil {
		t.Fatal(err)
	}
	if r.MeetsThreshold {
		t.Error("MeetsThreshold = true for a burn below threshold")
	}

	above := bigInt(t, "5000000000000000000000")
	r, err = e.CalculateProfit(p, scenarioResource(t), above, threshold4000(t), gas)
	if err != nil {
		t.Fatal(err)
	}
	if !r.MeetsThreshold {
		t.Error("MeetsThreshold = false for a burn above threshold")
	}
}

func TestCalculateProfit_Validation(t *testing.T) {
	e := defaultEngine(t)
	gas := scenarioGas(t)
	p, _ := e.Partition(scenarioTokens(t), gas)

	tests := []struct {
		name      string
		amount    *big.Int
		threshold *big.Int
		gas       GasContext
		wantCode  apperror.Code
	}{
		{"zero_amount", big.NewInt(0), threshold4000(t), gas, apperror.CodeInvalidResourceAmount},
		{"negative_amount", big.NewInt(-1), threshold4000(t), gas, apperror.CodeInvalidResourceAmount},
		{"nil_amount", nil, threshold4000(t), gas, apperror.CodeInvalidResourceAmount},
		{"zero_threshold", threshold4000(t), big.NewInt(0), gas, apperror.CodeInvalidThreshold},
		{"zero_value_gas", threshold4000(t), threshold4000(t), GasContext{}, apperror.CodeInvalidGasContext},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := e.CalculateProfit(p, scenarioResource(t), tt.amount, tt.threshold, tt.gas)
			if got := apperror.GetCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
			if r.Claimable != nil || !r.NetProfitUSD.IsZero() {
				t.Error("error path returned a partially populated result")
			}
		})
	}

	_, err := e.CalculateProfit(p, scenarioResource(t), big.NewInt(0), threshold4000(t), gas)
	if err == nil || err.Error() == "" {
		t.Fatal("expected error")
	}
	appErr := err.(*apperror.AppError)
	if appErr.Context != "resource amount must be positive" {
		t.Errorf("context = %q", appErr.Context)
	}
}

func TestCalculateProfit_NoDoubleCount(t *testing.T) {
	e := defaultEngine(t)
	gas := scenarioGas(t)
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 100; iter++ {
		p, err := e.Partition(randomSnapshot(t, rng, 1+rng.Intn(20)), gas)
		if err != nil {
			t.Fatal(err)
		}
		r, err := e.CalculateProfit(p, scenarioResource(t), threshold4000(t), threshold4000(t), gas)
		if err != nil {
			t.Fatal(err)
		}

		sum := decimal.Zero
		for _, c := range r.Claimable {
			sum = sum.Add(c.ValueUSD)
		}
		if !sum.Equal(r.ClaimableValueUSD) {
			t.Fatalf("iter %d: sum(claimable) %s != ClaimableValueUSD %s", iter, sum, r.ClaimableValueUSD)
		}

		wantUnits := uint64(DefaultBaseGasUnits + len(r.Claimable)*DefaultTransferGasUnits)
		if r.EstimatedGasUnits != wantUnits {
			t.Fatalf("iter %d: gas units %d, want %d", iter, r.EstimatedGasUnits, wantUnits)
		}
		if !r.SavedGasUSD.Equal(r.PerTransferCostUSD.Mul(decimal.NewFromInt(int64(len(r.Dust))))) {
			t.Fatalf("iter %d: saved gas %s for %d dust", iter, r.SavedGasUSD, len(r.Dust))
		}
		if r.IsProfitable != r.NetProfitUSD.IsPositive() {
			t.Fatalf("iter %d: IsProfitable %v with net %s", iter, r.IsProfitable, r.NetProfitUSD)
		}
	}
}

func TestCalculateProfit_Monotonicity(t *testing.T) {
	e := defaultEngine(t)
	gas := scenarioGas(t)
	resource := scenarioResource(t)
	rng := rand.New(rand.NewSource(99))

	net := func(tokens []TokenBalance) decimal.Decimal {
		sel, err := e.SelectOptimalBurn(tokens, resource, threshold4000(t), gas)
		if err != nil {
			t.Fatal(err)
		}
		return sel.Result.NetProfitUSD
	}

	for iter := 0; iter < 100; iter++ {
		tokens := randomSnapshot(t, rng, 1+rng.Intn(15))
		before := net(tokens)

		i := rng.Intn(len(tokens))
		bumped := append([]TokenBalance(nil), tokens...)
		var err error
		bumped[i], err = tokens[i].WithPrice(tokens[i].Price().Mul(decimal.NewFromInt(2)).Add(decimal.RequireFromString("0.01")))
		if err != nil {
			t.Fatal(err)
		}

		if after := net(bumped); after.LessThan(before) {
			t.Fatalf("iter %d: raising %s price lowered net profit %s -> %s", iter, tokens[i].Symbol(), before, after)
		}
	}
}
