package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

// scriptedHeaders returns the scripted numbers in order, then repeats the last.
type scriptedHeaders struct {
	mu      sync.Mutex
	numbers []int64
	errs    map[int]error
	call    int
}

func (s *scriptedHeaders) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.call
	s.call++
	if err, ok := s.errs[i]; ok {
		return nil, err
	}
	if i >= len(s.numbers) {
		i = len(s.numbers) - 1
	}
	return &types.Header{
		Number:  big.NewInt(s.numbers[i]),
		Time:    uint64(1_700_000_000 + s.numbers[i]),
		BaseFee: big.NewInt(7),
	}, nil
}

func testWatcherConfig() HeadWatcherConfig {
	return HeadWatcherConfig{
		PollInterval: 5 * time.Millisecond,
		MaxRetries:   3,
		RPCTimeout:   time.Second,
		BufferSize:   16,
	}
}

func collect(t *testing.T, ch <-chan *domain.Block, n int) []uint64 {
	t.Helper()
	var got []uint64
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case b, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, b.Number)
		case <-timeout:
			t.Fatalf("timed out after %v", got)
		}
	}
	return got
}

func TestHeadWatcher_EmitsOnlyIncreasingHeads(t *testing.T) {
	client := &scriptedHeaders{numbers: []int64{10, 10, 9, 11, 11, 13}}
	w, err := NewHeadWatcher(testWatcherConfig(), client, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := w.Watch(ctx)
	require.NoError(t, err)

	assert.Equal(t, []uint64{10, 11, 13}, collect(t, ch, 3))

	status := w.Status()
	assert.Equal(t, domain.StateConnected, status.State)
	assert.Equal(t, uint64(13), status.LastBlock)
}

func TestHeadWatcher_RetriesTransientErrors(t *testing.T) {
	client := &scriptedHeaders{
		numbers: []int64{5, 5, 6},
		errs:    map[int]error{0: errors.New("timeout"), 1: errors.New("timeout")},
	}
	w, err := NewHeadWatcher(testWatcherConfig(), client, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := w.Watch(ctx)
	require.NoError(t, err)

	got := collect(t, ch, 1)
	assert.Equal(t, uint64(6), got[0])
	assert.Zero(t, w.Status().Failures)
}

func TestHeadWatcher_SingleWatch(t *testing.T) {
	w, err := NewHeadWatcher(testWatcherConfig(), &scriptedHeaders{numbers: []int64{1}}, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := w.Watch(ctx)
	require.NoError(t, err)

	_, err = w.Watch(ctx)
	assert.Error(t, err)

	cancel()
	for range ch {
	}
	assert.Equal(t, domain.StateDisconnected, w.Status().State)
}

func TestHeadWatcher_LatestBlock(t *testing.T) {
	w, err := NewHeadWatcher(testWatcherConfig(), &scriptedHeaders{numbers: []int64{42}}, logger.NewNop())
	require.NoError(t, err)

	b, err := w.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), b.Number)
	assert.Equal(t, int64(7), b.BaseFee.Int64())
	assert.Equal(t, domain.StateDisconnected, w.Status().State)
}
