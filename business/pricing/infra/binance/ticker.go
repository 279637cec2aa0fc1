// Package binance implements the SpotTicker port on the Binance REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/feejar-monitor/business/pricing/app"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/circuitbreaker"
	"github.com/fd1az/feejar-monitor/internal/httpclient"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/feejar-monitor/business/pricing/infra/binance"

	// Binance REST API endpoints
	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	tickerEndpoint = "/api/v3/ticker/price"

	DefaultSymbol = "ETHUSDC"
	httpTimeout   = 10 * time.Second
)

var _ app.SpotTicker = (*Ticker)(nil)

// TickerConfig holds configuration for the ticker client.
type TickerConfig struct {
	BaseURL string        // API base URL (empty = default)
	Symbol  string        // USD-stable pair for ETH
	Timeout time.Duration // Request timeout
}

// DefaultTickerConfig returns sensible defaults.
func DefaultTickerConfig() TickerConfig {
	return TickerConfig{
		BaseURL: BaseAPIURL,
		Symbol:  DefaultSymbol,
		Timeout: httpTimeout,
	}
}

// Ticker reads the last traded ETH price.
type Ticker struct {
	client httpclient.Client
	symbol string
	cb     *circuitbreaker.CircuitBreaker[decimal.Decimal]
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewTicker creates a new Binance ticker client.
func NewTicker(cfg TickerConfig, log logger.LoggerInterface) (*Ticker, error) {
	def := DefaultTickerConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Symbol == "" {
		cfg.Symbol = def.Symbol
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithRetry(httpclient.RetryPolicy{MaxTries: 2, InitialBackoff: 200 * time.Millisecond}),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Ticker{
		client: client,
		symbol: cfg.Symbol,
		cb:     circuitbreaker.New[decimal.Decimal](circuitbreaker.DefaultConfig("binance-ticker")),
		logger: log,
		tracer: tracer,
	}, nil
}

// TickerResponse is the REST API response for a symbol price ticker.
type TickerResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// ETHPriceUSD returns the last price of the configured symbol.
func (t *Ticker) ETHPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := t.tracer.Start(ctx, "binance.http.ticker_price",
		trace.WithAttributes(attribute.String("symbol", t.symbol)),
	)
	defer span.End()

	price, err := t.cb.Execute(func() (decimal.Decimal, error) {
		var result TickerResponse
		_, err := t.client.NewRequestWithOptions(
			httpclient.WithLabels(
				httpclient.NewLabel("endpoint", "ticker_price"),
				httpclient.NewLabel("symbol", t.symbol),
			),
			httpclient.WithResponseErrorHandler(binanceErrorHandler),
		).
			SetQueryParam("symbol", t.symbol).
			SetResult(&result).
			Get(ctx, tickerEndpoint)
		if err != nil {
			return decimal.Zero, err
		}
		if !result.Price.IsPositive() {
			return decimal.Zero, fmt.Errorf("non-positive price %q for %s", result.Price.String(), t.symbol)
		}
		return result.Price, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ticker failed")
		if apperror.GetCode(err) == apperror.CodeCircuitOpen {
			return decimal.Zero, err
		}
		return decimal.Zero, apperror.New(apperror.CodeSpotTickerFailed,
			apperror.WithCause(err),
			apperror.WithContext(t.symbol))
	}

	span.SetAttributes(attribute.String("price", price.String()))
	span.SetStatus(codes.Ok, "ok")

	t.logger.Debug(ctx, "binance ticker", "symbol", t.symbol, "price", price.String())
	return price, nil
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr BinanceAPIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
