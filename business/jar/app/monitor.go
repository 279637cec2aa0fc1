package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	blockchainDomain "github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

// Evaluator produces a fresh evaluation of the jar.
type Evaluator interface {
	Refresh(ctx context.Context) (*Evaluation, error)
}

// MonitorConfig holds configuration for the monitor loop.
type MonitorConfig struct {
	// MinInterval drops heads that arrive sooner than this after the last evaluation.
	MinInterval time.Duration
}

// Monitor re-evaluates the jar on every new head and fans the result out
// to the reporters.
type Monitor struct {
	heads     HeadSource
	evaluator Evaluator
	reporters []Reporter
	config    MonitorConfig
	logger    logger.LoggerInterface

	mu            sync.Mutex
	lastRun       time.Time
	lastBlock     uint64
	wasProfitable *bool
	done          chan struct{}

	evaluations metric.Int64Counter
	netProfit   metric.Float64Gauge
	claimable   metric.Int64Gauge
	latency     metric.Float64Histogram
}

// NewMonitor creates a new Monitor.
func NewMonitor(heads HeadSource, evaluator Evaluator, reporters []Reporter, config MonitorConfig, log logger.LoggerInterface) *Monitor {
	m := &Monitor{
		heads:     heads,
		evaluator: evaluator,
		reporters: reporters,
		config:    config,
		logger:    log,
		done:      make(chan struct{}),
	}
	m.initMetrics()
	return m
}

func (m *Monitor) initMetrics() {
	meter := otel.Meter(meterName)

	m.evaluations, _ = meter.Int64Counter("jar_evaluations_total",
		metric.WithDescription("Jar evaluations by outcome"))
	m.netProfit, _ = meter.Float64Gauge("jar_net_profit_usd",
		metric.WithDescription("Net profit of the latest evaluation"),
		metric.WithUnit("USD"))
	m.claimable, _ = meter.Int64Gauge("jar_claimable_tokens",
		metric.WithDescription("Claimable tokens in the latest evaluation"))
	m.latency, _ = meter.Float64Histogram("jar_evaluation_duration_ms",
		metric.WithDescription("Time to snapshot and evaluate the jar"),
		metric.WithUnit("ms"))
}

// Start starts the reporters and the head loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info(ctx, "starting jar monitor", "min_interval", m.config.MinInterval)

	for _, r := range m.reporters {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}

	heads, err := m.heads.WatchHeads(ctx)
	if err != nil {
		return err
	}

	go m.run(ctx, heads)

	return nil
}

// Done is closed when the head loop exits.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) run(ctx context.Context, heads <-chan *blockchainDomain.Block) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "monitor stopping", "reason", ctx.Err())
			return
		case block, ok := <-heads:
			if !ok {
				m.logger.Warn(ctx, "head stream closed")
				return
			}
			if block != nil {
				m.onNewBlock(ctx, block)
			}
		}
	}
}

func (m *Monitor) onNewBlock(ctx context.Context, block *blockchainDomain.Block) {
	if !m.due(block) {
		m.logger.Debug(ctx, "skipping head", "number", block.Number)
		return
	}

	start := time.Now()
	ev, err := m.evaluator.Refresh(ctx)
	m.latency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		m.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		m.logger.Error(ctx, "evaluation failed", "block", block.Number, "error", err)
		for _, r := range m.reporters {
			r.ReportError(ctx, err)
		}
		return
	}

	outcome := "unprofitable"
	if ev.Formatted.IsProfitable {
		outcome = "profitable"
	}
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.netProfit.Record(ctx, ev.Selection.Result.NetProfitUSD.InexactFloat64())
	m.claimable.Record(ctx, int64(len(ev.Selection.Result.Claimable)))

	m.logTransition(ctx, ev)

	for _, r := range m.reporters {
		r.Report(ctx, ev)
	}
}

// due reports whether block should be evaluated and marks it as such.
func (m *Monitor) due(block *blockchainDomain.Block) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if block.Number <= m.lastBlock {
		return false
	}
	if !m.lastRun.IsZero() && time.Since(m.lastRun) < m.config.MinInterval {
		return false
	}
	m.lastRun = time.Now()
	m.lastBlock = block.Number
	return true
}

func (m *Monitor) logTransition(ctx context.Context, ev *Evaluation) {
	m.mu.Lock()
	prev := m.wasProfitable
	now := ev.Formatted.IsProfitable
	m.wasProfitable = &now
	m.mu.Unlock()

	if prev != nil && *prev == now {
		return
	}

	if now {
		m.logger.Info(ctx, "jar is profitable to claim",
			"block", ev.Snapshot.BlockNumber,
			"net", ev.Formatted.NetProfitUSD,
			"percent", ev.Formatted.ProfitPercent)
		return
	}
	m.logger.Info(ctx, "jar is not profitable",
		"block", ev.Snapshot.BlockNumber,
		"net", ev.Formatted.NetProfitUSD)
}

// Stop gracefully shuts down the reporters.
func (m *Monitor) Stop() error {
	m.logger.Info(context.Background(), "stopping jar monitor")

	var errs []error
	for _, r := range m.reporters {
		if err := r.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
