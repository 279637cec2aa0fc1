package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(c *Checker) *mux.Router {
	r := mux.NewRouter()
	c.Mount(r)
	return r
}

func TestHealth_AllHealthy(t *testing.T) {
	c := New("v1.2.3")
	c.RegisterCheck("rpc", func(context.Context) (bool, string) { return true, "block 100" })

	rec := httptest.NewRecorder()
	newRouter(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, "v1.2.3", st.Version)
	assert.Equal(t, "block 100", st.Checks["rpc"].Message)
}

func TestHealth_Degraded(t *testing.T) {
	c := New("")
	c.RegisterCheck("rpc", func(context.Context) (bool, string) { return true, "" })
	c.RegisterCheck("prices", func(context.Context) (bool, string) { return false, "circuit open" })

	rec := httptest.NewRecorder()
	newRouter(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", rec.Body.String())

	rec = httptest.NewRecorder()
	newRouter(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
