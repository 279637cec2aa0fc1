package ethereum

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

var _ app.TokenDiscoverer = (*TokenDiscovery)(nil)

// LogFilterer is the part of ethclient.Client discovery needs.
type LogFilterer interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// DiscoveryConfig bounds the Transfer log scan.
type DiscoveryConfig struct {
	FromBlock uint64
	ChunkSize uint64
	MinChunk  uint64
}

type scanState struct {
	next   uint64
	seen   map[common.Address]bool
	tokens []common.Address
}

// TokenDiscovery finds tokens sent to a holder by scanning ERC-20 Transfer
// logs. Scans are incremental: each call resumes where the last one ended.
type TokenDiscovery struct {
	client LogFilterer
	config DiscoveryConfig
	logger logger.LoggerInterface

	mu    sync.Mutex
	state map[common.Address]*scanState

	tracer  trace.Tracer
	scanned metric.Int64Counter
}

// NewTokenDiscovery creates a new TokenDiscovery.
func NewTokenDiscovery(client LogFilterer, cfg DiscoveryConfig, log logger.LoggerInterface) *TokenDiscovery {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 5000
	}
	if cfg.MinChunk == 0 || cfg.MinChunk > cfg.ChunkSize {
		cfg.MinChunk = 1
	}

	d := &TokenDiscovery{
		client: client,
		config: cfg,
		logger: log,
		state:  make(map[common.Address]*scanState),
		tracer: otel.Tracer(tracerName),
	}
	d.scanned, _ = otel.Meter(meterName).Int64Counter("discovery_blocks_scanned_total",
		metric.WithDescription("Blocks scanned for Transfer logs"))
	return d
}

// Discover returns every token that has ever been transferred to holder,
// in first-seen order.
func (d *TokenDiscovery) Discover(ctx context.Context, holder common.Address) ([]common.Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, span := d.tracer.Start(ctx, "discovery.scan",
		trace.WithAttributes(attribute.String("holder", holder.Hex())))
	defer span.End()

	st, ok := d.state[holder]
	if !ok {
		st = &scanState{next: d.config.FromBlock, seen: make(map[common.Address]bool)}
		d.state[holder] = st
	}

	head, err := d.client.BlockNumber(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "block number")
		return nil, apperror.External(apperror.CodeLogQueryFailed, "block number", err)
	}

	holderTopic := common.BytesToHash(holder.Bytes())
	chunk := d.config.ChunkSize
	start := st.next

	for st.next <= head {
		to := min(st.next+chunk-1, head)

		logs, err := d.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(st.next),
			ToBlock:   new(big.Int).SetUint64(to),
			Topics:    [][]common.Hash{{TransferTopic}, nil, {holderTopic}},
		})
		if err != nil {
			if ctx.Err() == nil && chunk > d.config.MinChunk {
				chunk = max(chunk/2, d.config.MinChunk)
				d.logger.Debug(ctx, "narrowing log range", "from", st.next, "chunk", chunk, "error", err)
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "filter logs")
			return nil, apperror.External(apperror.CodeLogQueryFailed, "transfer logs", err)
		}

		for _, l := range logs {
			if !st.seen[l.Address] {
				st.seen[l.Address] = true
				st.tokens = append(st.tokens, l.Address)
			}
		}
		d.scanned.Add(ctx, int64(to-st.next+1))
		st.next = to + 1
	}

	span.SetAttributes(
		attribute.Int64("from", int64(start)),
		attribute.Int64("to", int64(head)),
		attribute.Int("tokens", len(st.tokens)),
	)
	span.SetStatus(codes.Ok, "ok")

	if st.next > start {
		d.logger.Debug(ctx, "discovery scan", "from", start, "to", head, "tokens", len(st.tokens))
	}

	out := make([]common.Address, len(st.tokens))
	copy(out, st.tokens)
	return out, nil
}
