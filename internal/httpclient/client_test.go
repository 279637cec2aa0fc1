package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWaiter struct{ n atomic.Int32 }

func (w *countingWaiter) Wait(context.Context) error {
	w.n.Add(1)
	return nil
}

func TestRequest_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "a,b", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"price":"3000.5"}`))
	}))
	defer srv.Close()

	waiter := &countingWaiter{}
	c, err := NewInstrumentedClient(
		WithBaseURL(srv.URL),
		WithRateLimiter(waiter),
		WithRetry(RetryPolicy{MaxTries: 5, InitialBackoff: time.Millisecond}),
	)
	require.NoError(t, err)

	var out struct {
		Price string `json:"price"`
	}
	resp, err := c.NewRequest().SetQueryParam("ids", "a,b").SetResult(&out).Get(context.Background(), "/simple/price")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "3000.5", out.Price)
	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 3, waiter.n.Load(), "limiter gates every attempt")
}

func TestRequest_ExhaustedRetriesReturnStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(
		WithBaseURL(srv.URL),
		WithRetry(RetryPolicy{MaxTries: 2, InitialBackoff: time.Millisecond}),
	)
	require.NoError(t, err)

	_, err = c.NewRequest().Get(context.Background(), "/x")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestRequest_ErrorHandlerOwnsClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad symbol"}`))
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(
		WithBaseURL(srv.URL),
		WithRetry(RetryPolicy{MaxTries: 5, InitialBackoff: time.Millisecond}),
	)
	require.NoError(t, err)

	sentinel := errors.New("rejected")
	_, err = c.NewRequestWithOptions(WithResponseErrorHandler(func(code int, body []byte) error {
		if code >= 400 {
			return sentinel
		}
		return nil
	})).Get(context.Background(), "/x")

	assert.ErrorIs(t, err, sentinel)
	assert.EqualValues(t, 1, calls.Load(), "4xx other than 429 is not retried")
}

func TestRequest_PostEncodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := c.NewRequest().SetBody(map[string]int{"a": 1}).Post(context.Background(), "/y")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
