package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/circuitbreaker"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

var _ app.ReleaseReader = (*ReleaseReader)(nil)

// ReleaseReaderConfig points the reader at the release contract.
type ReleaseReaderConfig struct {
	Address           common.Address
	ResourceToken     common.Address
	ThresholdOverride *big.Int // replaces threshold() when set
	MaxTries          uint
}

// ReleaseReader reads the burn threshold and release nonce.
type ReleaseReader struct {
	client ContractCaller
	config ReleaseReaderConfig
	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// NewReleaseReader creates a new ReleaseReader.
func NewReleaseReader(client ContractCaller, cfg ReleaseReaderConfig, log logger.LoggerInterface) *ReleaseReader {
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	return &ReleaseReader{
		client: client,
		config: cfg,
		logger: log,
		cb:     circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("release-reader")),
		tracer: otel.Tracer(tracerName),
	}
}

// Config reads threshold() and nonce() in parallel.
func (r *ReleaseReader) Config(ctx context.Context) (app.ReleaseConfig, error) {
	ctx, span := r.tracer.Start(ctx, "release.config",
		trace.WithAttributes(attribute.String("release", r.config.Address.Hex())))
	defer span.End()

	var threshold, nonce *big.Int

	g, gctx := errgroup.WithContext(ctx)
	if r.config.ThresholdOverride != nil {
		threshold = new(big.Int).Set(r.config.ThresholdOverride)
	} else {
		g.Go(func() (err error) {
			threshold, err = r.readUint(gctx, "threshold")
			return err
		})
	}
	g.Go(func() (err error) {
		nonce, err = r.readUint(gctx, "nonce")
		return err
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release config")
		return app.ReleaseConfig{}, apperror.New(apperror.CodeReleaseConfigFailed,
			apperror.WithCause(err),
			apperror.WithContext(r.config.Address.Hex()))
	}

	if threshold.Sign() <= 0 {
		return app.ReleaseConfig{}, apperror.External(apperror.CodeInvalidThreshold,
			fmt.Sprintf("release %s reports threshold %s", r.config.Address.Hex(), threshold), nil)
	}

	span.SetAttributes(
		attribute.String("threshold", threshold.String()),
		attribute.String("nonce", nonce.String()),
	)
	span.SetStatus(codes.Ok, "ok")

	return app.ReleaseConfig{
		Address:       r.config.Address,
		ResourceToken: r.config.ResourceToken,
		Threshold:     threshold,
		Nonce:         nonce,
	}, nil
}

func (r *ReleaseReader) readUint(ctx context.Context, method string) (*big.Int, error) {
	data, err := releaseContract.Pack(method)
	if err != nil {
		return nil, err
	}
	out, err := callWithRetry(ctx, r.client, r.cb, r.config.MaxTries, r.config.Address, data)
	if err != nil {
		return nil, fmt.Errorf("%s(): %w", method, err)
	}
	values, err := releaseContract.Unpack(method, out)
	if err != nil || len(values) == 0 {
		return nil, fmt.Errorf("%s(): undecodable output %x", method, out)
	}
	return values[0].(*big.Int), nil
}

// BreakerState reports the reader's circuit breaker state.
func (r *ReleaseReader) BreakerState() string {
	return r.cb.State()
}
