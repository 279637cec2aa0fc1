package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockchainDomain "github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

type chanHeads struct {
	ch chan *blockchainDomain.Block
}

func (h *chanHeads) WatchHeads(context.Context) (<-chan *blockchainDomain.Block, error) {
	return h.ch, nil
}

type scriptedEvaluator struct {
	mu    sync.Mutex
	calls int
	errs  map[int]error
	profs map[int]bool
}

func (e *scriptedEvaluator) Refresh(context.Context) (*Evaluation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if err := e.errs[e.calls]; err != nil {
		return nil, err
	}
	return &Evaluation{
		Snapshot:  &Snapshot{BlockNumber: uint64(e.calls)},
		Formatted: domain.FormattedResult{IsProfitable: e.profs[e.calls], NetProfitUSD: "$1.00"},
	}, nil
}

type recordingReporter struct {
	mu      sync.Mutex
	started bool
	stopped bool
	reports []*Evaluation
	errs    []error
}

func (r *recordingReporter) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *recordingReporter) Report(_ context.Context, ev *Evaluation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, ev)
}

func (r *recordingReporter) ReportError(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

func (r *recordingReporter) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports), len(r.errs)
}

func startMonitor(t *testing.T, eval Evaluator, cfg MonitorConfig) (*Monitor, chan *blockchainDomain.Block, *recordingReporter) {
	t.Helper()
	heads := &chanHeads{ch: make(chan *blockchainDomain.Block)}
	rep := &recordingReporter{}
	m := NewMonitor(heads, eval, []Reporter{rep}, cfg, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, m.Start(ctx))
	return m, heads.ch, rep
}

func TestMonitor_ReportsEveryNewHead(t *testing.T) {
	eval := &scriptedEvaluator{errs: map[int]error{2: errBoom}}
	m, heads, rep := startMonitor(t, eval, MonitorConfig{})

	heads <- &blockchainDomain.Block{Number: 1}
	heads <- &blockchainDomain.Block{Number: 1}
	heads <- &blockchainDomain.Block{Number: 2}
	heads <- &blockchainDomain.Block{Number: 3}

	assert.Eventually(t, func() bool {
		reports, errs := rep.counts()
		return reports == 2 && errs == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.True(t, rep.started)
	assert.True(t, rep.stopped)
}

func TestMonitor_MinInterval(t *testing.T) {
	eval := &scriptedEvaluator{}
	_, heads, rep := startMonitor(t, eval, MonitorConfig{MinInterval: time.Hour})

	heads <- &blockchainDomain.Block{Number: 1}
	heads <- &blockchainDomain.Block{Number: 2}
	heads <- &blockchainDomain.Block{Number: 3}

	assert.Eventually(t, func() bool {
		reports, _ := rep.counts()
		return reports == 1
	}, time.Second, 5*time.Millisecond)

	eval.mu.Lock()
	defer eval.mu.Unlock()
	assert.Equal(t, 1, eval.calls)
}

func TestMonitor_ExitsWhenHeadsClose(t *testing.T) {
	m, heads, _ := startMonitor(t, &scriptedEvaluator{}, MonitorConfig{})

	close(heads)

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
