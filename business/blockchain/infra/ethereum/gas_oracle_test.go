package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

type fakeGasClient struct {
	price    *big.Int
	priceErr error
	estimate uint64
	estErr   error
	calls    atomic.Int32
	lastCall ethereum.CallMsg
}

func (f *fakeGasClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.calls.Add(1)
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return new(big.Int).Set(f.price), nil
}

func (f *fakeGasClient) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.lastCall = msg
	return f.estimate, f.estErr
}

func newTestOracle(t *testing.T, client GasClient, cfg GasOracleConfig) *GasOracle {
	t.Helper()
	o, err := NewGasOracle(cfg, client, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestGasOracle_CachesSuggestion(t *testing.T) {
	client := &fakeGasClient{price: big.NewInt(20_000_000_000)}
	o := newTestOracle(t, client, GasOracleConfig{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		p, err := o.GetGasPrice(context.Background())
		require.NoError(t, err)
		assert.True(t, p.Gwei.Equal(decimal.NewFromInt(20)), "gwei = %s", p.Gwei)
	}
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestGasOracle_ClampsToCeiling(t *testing.T) {
	client := &fakeGasClient{price: big.NewInt(900_000_000_000)}
	o := newTestOracle(t, client, GasOracleConfig{CacheTTL: time.Minute, MaxGasPrice: big.NewInt(100_000_000_000)})

	p, err := o.GetGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "100000000000", p.Wei.String())
}

func TestGasOracle_NoCeiling(t *testing.T) {
	client := &fakeGasClient{price: big.NewInt(900_000_000_000)}
	o := newTestOracle(t, client, GasOracleConfig{CacheTTL: time.Minute})

	p, err := o.GetGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "900000000000", p.Wei.String())
}

func TestGasOracle_ErrorsAreNotCached(t *testing.T) {
	client := &fakeGasClient{priceErr: errors.New("boom")}
	o := newTestOracle(t, client, GasOracleConfig{CacheTTL: time.Minute})

	_, err := o.GetGasPrice(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeEthereumRPCError, apperror.GetCode(err))

	client.priceErr = nil
	client.price = big.NewInt(1_000_000_000)
	p, err := o.GetGasPrice(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Gwei.Equal(decimal.NewFromInt(1)))
}

func TestGasOracle_BreakerOpensAfterFailures(t *testing.T) {
	client := &fakeGasClient{priceErr: errors.New("down")}
	o := newTestOracle(t, client, GasOracleConfig{CacheTTL: time.Minute})

	for i := 0; i < 5; i++ {
		_, _ = o.GetGasPrice(context.Background())
	}
	_, err := o.GetGasPrice(context.Background())
	assert.Equal(t, apperror.CodeCircuitOpen, apperror.GetCode(err))
	assert.Equal(t, "open", o.BreakerState())
	assert.Equal(t, int32(5), client.calls.Load())
}

func TestGasOracle_EstimateGasAddsMargin(t *testing.T) {
	client := &fakeGasClient{estimate: 100_000}
	o := newTestOracle(t, client, DefaultGasOracleConfig())

	from := common.HexToAddress("0x01")
	to := common.HexToAddress("0x02")
	gas, err := o.EstimateGas(context.Background(), from, to, []byte{0xde, 0xad})
	require.NoError(t, err)

	assert.Equal(t, uint64(110_000), gas)
	assert.Equal(t, from, client.lastCall.From)
	assert.Equal(t, to, *client.lastCall.To)
}

func TestGasOracle_EstimateGasFailure(t *testing.T) {
	client := &fakeGasClient{estErr: errors.New("execution reverted")}
	o := newTestOracle(t, client, DefaultGasOracleConfig())

	_, err := o.EstimateGas(context.Background(), common.Address{}, common.HexToAddress("0x02"), nil)
	assert.Equal(t, apperror.CodeGasEstimationFailed, apperror.GetCode(err))
}
