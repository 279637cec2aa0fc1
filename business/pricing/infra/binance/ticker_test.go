package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

func newTestTicker(t *testing.T, h http.HandlerFunc) *Ticker {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tk, err := NewTicker(TickerConfig{BaseURL: srv.URL}, logger.NewNop())
	require.NoError(t, err)
	return tk
}

func TestTicker_ETHPriceUSD(t *testing.T) {
	tk := newTestTicker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tickerEndpoint, r.URL.Path)
		assert.Equal(t, DefaultSymbol, r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDC","price":"3012.45000000"}`))
	})

	price, err := tk.ETHPriceUSD(context.Background())
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("3012.45")), "price = %s", price)
}

func TestTicker_APIError(t *testing.T) {
	tk := newTestTicker(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	_, err := tk.ETHPriceUSD(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeSpotTickerFailed, apperror.GetCode(err))
	assert.Contains(t, err.Error(), "Invalid symbol.")
}

func TestTicker_RejectsZeroPrice(t *testing.T) {
	tk := newTestTicker(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDC","price":"0.00000000"}`))
	})

	_, err := tk.ETHPriceUSD(context.Background())
	assert.Equal(t, apperror.CodeSpotTickerFailed, apperror.GetCode(err))
}

func TestBinanceErrorHandler(t *testing.T) {
	assert.NoError(t, binanceErrorHandler(200, nil))

	err := binanceErrorHandler(418, []byte(`{"code":-1003,"msg":"banned"}`))
	var apiErr *BinanceAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, -1003, apiErr.Code)

	err = binanceErrorHandler(502, []byte(`bad gateway`))
	assert.EqualError(t, err, "HTTP 502: bad gateway")
}
