package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

// HeaderClient is the part of ethclient.Client the watcher needs.
type HeaderClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// HeadWatcherConfig holds configuration for the head watcher.
type HeadWatcherConfig struct {
	PollInterval time.Duration
	MaxRetries   uint          // per poll
	RPCTimeout   time.Duration // per attempt
	BufferSize   int
}

// DefaultHeadWatcherConfig polls about once per block.
func DefaultHeadWatcherConfig() HeadWatcherConfig {
	return HeadWatcherConfig{
		PollInterval: 12 * time.Second,
		MaxRetries:   3,
		RPCTimeout:   10 * time.Second,
		BufferSize:   16,
	}
}

type headWatcherMetrics struct {
	blocksReceived metric.Int64Counter
	pollErrors     metric.Int64Counter
	headNumber     metric.Int64Gauge
}

// HeadWatcher polls the latest header and emits each new head once.
type HeadWatcher struct {
	config HeadWatcherConfig
	client HeaderClient
	logger logger.LoggerInterface

	mu         sync.RWMutex
	state      domain.ConnectionState
	lastUpdate time.Time
	failures   int
	lastBlock  atomic.Uint64

	running atomic.Bool

	tracer  trace.Tracer
	metrics *headWatcherMetrics
}

// NewHeadWatcher creates a watcher over client.
func NewHeadWatcher(cfg HeadWatcherConfig, client HeaderClient, log logger.LoggerInterface) (*HeadWatcher, error) {
	def := DefaultHeadWatcherConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = def.RPCTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	w := &HeadWatcher{
		config: cfg,
		client: client,
		logger: log,
		state:  domain.StateDisconnected,
		tracer: otel.Tracer(tracerName),
	}

	if err := w.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return w, nil
}

func (w *HeadWatcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	w.metrics = &headWatcherMetrics{}

	w.metrics.blocksReceived, err = meter.Int64Counter(
		"blocks_received_total",
		metric.WithDescription("New heads observed"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	w.metrics.pollErrors, err = meter.Int64Counter(
		"head_poll_errors_total",
		metric.WithDescription("Polls that failed after retries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	w.metrics.headNumber, err = meter.Int64Gauge(
		"head_block_number",
		metric.WithDescription("Latest observed block number"),
		metric.WithUnit("{block}"),
	)
	return err
}

// Watch polls until ctx is cancelled. The channel closes when polling stops.
// Only one Watch may run at a time.
func (w *HeadWatcher) Watch(ctx context.Context) (<-chan *domain.Block, error) {
	if !w.running.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("head watcher already running"))
	}

	w.setState(domain.StateConnecting)
	out := make(chan *domain.Block, w.config.BufferSize)

	go func() {
		defer close(out)
		defer w.running.Store(false)
		defer w.setState(domain.StateDisconnected)

		ticker := time.NewTicker(w.config.PollInterval)
		defer ticker.Stop()

		w.logger.Info(ctx, "watching chain head", "interval", w.config.PollInterval)

		for {
			w.poll(ctx, out)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out, nil
}

func (w *HeadWatcher) poll(ctx context.Context, out chan<- *domain.Block) {
	ctx, span := w.tracer.Start(ctx, "eth.poll.head")
	defer span.End()

	block, err := w.fetchWithRetry(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.metrics.pollErrors.Add(ctx, 1)
		w.recordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "poll failed")
		w.logger.Error(ctx, "head poll failed", "error", err)
		return
	}

	w.recordSuccess()
	span.SetAttributes(attribute.Int64("block", int64(block.Number)))

	prev := w.lastBlock.Load()
	if block.Number <= prev {
		span.SetStatus(codes.Ok, "no new head")
		return
	}
	w.lastBlock.Store(block.Number)
	w.metrics.blocksReceived.Add(ctx, 1)
	w.metrics.headNumber.Record(ctx, int64(block.Number))

	select {
	case out <- block:
	case <-ctx.Done():
		return
	default:
		w.logger.Warn(ctx, "head channel full, dropping block", "block", block.Number)
	}
	span.SetStatus(codes.Ok, "new head")
}

func (w *HeadWatcher) fetchWithRetry(ctx context.Context) (*domain.Block, error) {
	op := func() (*domain.Block, error) {
		callCtx, cancel := context.WithTimeout(ctx, w.config.RPCTimeout)
		defer cancel()

		header, err := w.client.HeaderByNumber(callCtx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		return headerToBlock(header), nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond

	block, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(w.config.MaxRetries),
		backoff.WithMaxElapsedTime(w.config.RPCTimeout*time.Duration(w.config.MaxRetries)),
	)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("latest header"))
	}
	return block, nil
}

// LatestBlock fetches the current head without touching the watch state.
func (w *HeadWatcher) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := w.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	header, err := w.client.HeaderByNumber(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "header failed")
		return nil, apperror.New(apperror.CodeBlockNotFound,
			apperror.WithCause(err),
			apperror.WithContext("latest header"))
	}

	span.SetStatus(codes.Ok, "ok")
	return headerToBlock(header), nil
}

// Status returns a snapshot of the connection state.
func (w *HeadWatcher) Status() domain.ConnectionStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return domain.ConnectionStatus{
		State:      w.state,
		LastBlock:  w.lastBlock.Load(),
		LastUpdate: w.lastUpdate,
		Failures:   w.failures,
	}
}

func (w *HeadWatcher) setState(s domain.ConnectionState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *HeadWatcher) recordSuccess() {
	w.mu.Lock()
	w.state = domain.StateConnected
	w.failures = 0
	w.lastUpdate = time.Now()
	w.mu.Unlock()
}

func (w *HeadWatcher) recordFailure() {
	w.mu.Lock()
	w.state = domain.StateReconnecting
	w.failures++
	w.mu.Unlock()
}

func headerToBlock(h *types.Header) *domain.Block {
	b := &domain.Block{
		Number:    h.Number.Uint64(),
		Hash:      h.Hash(),
		Timestamp: time.Unix(int64(h.Time), 0),
	}
	if h.BaseFee != nil {
		b.BaseFee = new(big.Int).Set(h.BaseFee)
	}
	return b
}
