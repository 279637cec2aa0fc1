package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes one HTTP call.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response wraps http.Response with the already-read body.
type Response struct {
	*http.Response
	body   []byte
	result any
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

func (r *Response) String() string {
	return string(r.body)
}

// IsError returns true if the status code indicates an error (>= 400).
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Result returns the unmarshaled result, nil if decoding failed.
func (r *Response) Result() any {
	return r.result
}

// StatusError is returned for retryable statuses once retries are exhausted
// and no ResponseErrorHandler claimed the response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

type requestBuilder struct {
	c                *InstrumentedClient
	headers          map[string]string
	query            url.Values
	body             any
	result           any
	errorHandler     ResponseErrorHandler
	labels           []*Label
}

func (r *requestBuilder) Get(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, url)
}

func (r *requestBuilder) Post(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, url)
}

// SetBody sets the request body; anything but []byte/string is JSON encoded.
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Set(key, value)
	return r
}

// SetResult sets the target for JSON decoding of the response body.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) buildURL(path string) (string, error) {
	full := path
	if r.c.baseURL != "" && !strings.HasPrefix(path, "http") {
		full = strings.TrimSuffix(r.c.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	if len(r.query) > 0 {
		q := u.Query()
		for k, vs := range r.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (r *requestBuilder) encodeBody() ([]byte, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
		return raw, nil
	}
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	ctx, span := r.c.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", path),
			attribute.String("provider", r.c.providerName),
		),
	)
	defer span.End()

	fullURL, err := r.buildURL(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid url")
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	body, err := r.encodeBody()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal body")
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	if r.c.logRequest && body != nil {
		span.AddEvent("request.body", trace.WithAttributes(
			attribute.String("http.request_body", string(body)),
		))
	}

	var last *Response
	attempts := 0
	attempt := func() (*Response, error) {
		attempts++
		if attempts > 1 {
			r.c.retryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", r.c.providerName)))
		}
		if r.c.limiter != nil {
			if err := r.c.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(err)
			}
		}
		resp, err := r.do(ctx, method, fullURL, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		last = resp
		if retryableStatus(resp.StatusCode) {
			return resp, &StatusError{StatusCode: resp.StatusCode, Body: truncate(resp.String(), 256)}
		}
		return resp, nil
	}

	var response *Response
	if r.c.retry == nil {
		response, err = attempt()
	} else {
		response, err = backoff.Retry(ctx, attempt, r.retryOptions()...)
	}
	span.SetAttributes(attribute.Int("http.attempts", attempts))

	var statusErr *StatusError
	if err != nil && !errors.As(err, &statusErr) {
		r.recordError(ctx, span, err)
		return nil, err
	}
	if response == nil {
		response = last
	}

	if r.c.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", response.String()),
		))
	}

	if r.result != nil && len(response.body) > 0 {
		if err := json.Unmarshal(response.body, r.result); err != nil {
			span.RecordError(err)
		} else {
			response.result = r.result
		}
	}

	if response.IsError() {
		span.SetAttributes(
			attribute.Int("http.status_code", response.StatusCode),
			attribute.String("http.error.status", response.Status),
		)
	}

	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(response.StatusCode, response.body); handlerErr != nil {
			r.recordMetrics(ctx, false)
			span.SetStatus(codes.Error, handlerErr.Error())
			return response, handlerErr
		}
	}

	if statusErr != nil {
		r.recordMetrics(ctx, false)
		span.SetStatus(codes.Error, statusErr.Error())
		return response, statusErr
	}

	r.recordMetrics(ctx, !response.IsError())
	return response, nil
}

func (r *requestBuilder) do(ctx context.Context, method, fullURL string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{Response: resp, body: raw}, nil
}

func (r *requestBuilder) retryOptions() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	if r.c.retry.InitialBackoff > 0 {
		b.InitialInterval = r.c.retry.InitialBackoff
	}
	opts := []backoff.RetryOption{backoff.WithBackOff(b)}
	if r.c.retry.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(r.c.retry.MaxTries))
	}
	maxElapsed := r.c.retry.MaxElapsedTime
	if maxElapsed == 0 {
		maxElapsed = 30 * time.Second
	}
	return append(opts, backoff.WithMaxElapsedTime(maxElapsed))
}

// recordError logs network errors to the span.
func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
	r.recordMetrics(ctx, false)
}

func (r *requestBuilder) recordMetrics(ctx context.Context, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.c.providerName),
		attribute.Bool("success", success),
	}
	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}
	r.c.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
