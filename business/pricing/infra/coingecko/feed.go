// Package coingecko implements the PriceFeed port on the CoinGecko REST API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
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
	"github.com/fd1az/feejar-monitor/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/feejar-monitor/business/pricing/infra/coingecko"

	DefaultBaseURL  = "https://api.coingecko.com/api/v3"
	DefaultPlatform = "ethereum"

	tokenPriceEndpoint  = "/simple/token_price/"
	simplePriceEndpoint = "/simple/price"

	// contract_addresses is capped per request on the public tier
	maxAddressesPerCall = 50
)

var _ app.PriceFeed = (*Feed)(nil)

// Config holds configuration for the feed client.
type Config struct {
	BaseURL           string
	APIKey            string // sent as x-cg-demo-api-key when set
	Platform          string // asset platform id, e.g. "ethereum"
	RequestsPerMinute int
	Timeout           time.Duration
	MaxTries          uint
}

// Feed prices ERC-20 contracts and ETH through CoinGecko.
type Feed struct {
	client   httpclient.Client
	platform string
	cb       *circuitbreaker.CircuitBreaker[map[string]map[string]decimal.Decimal]
	logger   logger.LoggerInterface
	tracer   trace.Tracer
}

// NewFeed creates a rate limited, retrying feed client.
func NewFeed(cfg Config, log logger.LoggerInterface) (*Feed, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}

	headers := map[string]string{"Accept": "application/json"}
	if cfg.APIKey != "" {
		headers["x-cg-demo-api-key"] = cfg.APIKey
	}

	tracer := otel.Tracer(tracerName)
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("coingecko"),
		httpclient.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithHeaders(headers),
		httpclient.WithRateLimiter(ratelimit.New(cfg.RequestsPerMinute)),
		httpclient.WithRetry(httpclient.RetryPolicy{MaxTries: cfg.MaxTries, InitialBackoff: 500 * time.Millisecond}),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Feed{
		client:   client,
		platform: cfg.Platform,
		cb:       circuitbreaker.New[map[string]map[string]decimal.Decimal](circuitbreaker.DefaultConfig("coingecko")),
		logger:   log,
		tracer:   tracer,
	}, nil
}

// TokenPricesUSD prices contracts in batches. Unknown contracts are absent
// from the result.
func (f *Feed) TokenPricesUSD(ctx context.Context, tokens []common.Address) (map[common.Address]decimal.Decimal, error) {
	ctx, span := f.tracer.Start(ctx, "coingecko.token_prices",
		trace.WithAttributes(attribute.Int("tokens", len(tokens))))
	defer span.End()

	out := make(map[common.Address]decimal.Decimal, len(tokens))
	for start := 0; start < len(tokens); start += maxAddressesPerCall {
		end := min(start+maxAddressesPerCall, len(tokens))

		ids := make([]string, 0, end-start)
		for _, t := range tokens[start:end] {
			ids = append(ids, strings.ToLower(t.Hex()))
		}

		body, err := f.get(ctx, "token_price", func(r httpclient.Request) httpclient.Request {
			return r.SetQueryParam("contract_addresses", strings.Join(ids, ",")).
				SetQueryParam("vs_currencies", "usd")
		}, tokenPriceEndpoint+f.platform)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "token prices")
			return nil, err
		}

		for addr, quotes := range body {
			usd, ok := quotes["usd"]
			if !ok || !common.IsHexAddress(addr) {
				continue
			}
			out[common.HexToAddress(addr)] = usd
		}
	}

	span.SetAttributes(attribute.Int("priced", len(out)))
	span.SetStatus(codes.Ok, "ok")
	return out, nil
}

// ETHPriceUSD returns the ethereum coin price.
func (f *Feed) ETHPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := f.tracer.Start(ctx, "coingecko.eth_price")
	defer span.End()

	body, err := f.get(ctx, "price", func(r httpclient.Request) httpclient.Request {
		return r.SetQueryParam("ids", "ethereum").SetQueryParam("vs_currencies", "usd")
	}, simplePriceEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "eth price")
		return decimal.Zero, err
	}

	usd, ok := body["ethereum"]["usd"]
	if !ok || !usd.IsPositive() {
		return decimal.Zero, apperror.External(apperror.CodePriceFeedFailed, "ethereum price missing", nil)
	}

	span.SetStatus(codes.Ok, "ok")
	return usd, nil
}

func (f *Feed) get(ctx context.Context, endpoint string, build func(httpclient.Request) httpclient.Request, path string) (map[string]map[string]decimal.Decimal, error) {
	return f.cb.Execute(func() (map[string]map[string]decimal.Decimal, error) {
		var result map[string]map[string]decimal.Decimal

		req := f.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", endpoint)),
			httpclient.WithResponseErrorHandler(errorHandler),
		)
		resp, err := build(req).SetResult(&result).Get(ctx, path)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError && apiErr.StatusCode != http.StatusTooManyRequests {
				return nil, apperror.New(apperror.CodePriceFeedRejected,
					apperror.WithCause(err),
					apperror.WithContext(endpoint))
			}
			return nil, apperror.External(apperror.CodePriceFeedFailed, endpoint, err)
		}
		if result == nil {
			return nil, apperror.External(apperror.CodePriceFeedFailed,
				fmt.Sprintf("%s: undecodable body %q", endpoint, truncate(resp.String(), 128)), nil)
		}
		return result, nil
	})
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko HTTP %d: %s", e.StatusCode, e.Message)
}

func errorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}

	var payload struct {
		Error  string `json:"error"`
		Status struct {
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
	}
	msg := truncate(string(body), 256)
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Status.ErrorMessage != "":
			msg = payload.Status.ErrorMessage
		}
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
