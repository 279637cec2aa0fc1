package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cfg := DefaultConfig("rpc")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	cb := New[int](cfg)

	rpcErr := errors.New("rpc down")
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, rpcErr })
		require.ErrorIs(t, err, rpcErr)
	}

	assert.True(t, cb.IsOpen())

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	require.Error(t, err)
	assert.Equal(t, apperror.CodeCircuitOpen, apperror.GetCode(err))
}

func TestCircuitBreaker_PassesResults(t *testing.T) {
	cb := New[string](DefaultConfig("ok"))

	v, err := cb.Execute(func() (string, error) { return "fine", nil })
	require.NoError(t, err)
	assert.Equal(t, "fine", v)
	assert.Equal(t, "closed", cb.State())
}
