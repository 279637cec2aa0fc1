package infra

import (
	"context"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

// Publisher broadcasts a value to stream subscribers.
type Publisher interface {
	Publish(ctx context.Context, v any) error
	Close()
}

// WSReporter implements app.Reporter by pushing each evaluation to the
// WebSocket hub.
type WSReporter struct {
	hub    Publisher
	logger logger.LoggerInterface
}

// NewWSReporter creates a WSReporter.
func NewWSReporter(hub Publisher, log logger.LoggerInterface) *WSReporter {
	return &WSReporter{hub: hub, logger: log}
}

func (r *WSReporter) Start(ctx context.Context) error { return nil }

// Report publishes the evaluation payload.
func (r *WSReporter) Report(ctx context.Context, ev *app.Evaluation) {
	if err := r.hub.Publish(ctx, ev.Payload()); err != nil {
		r.logger.Warn(ctx, "publish evaluation", "error", err)
	}
}

// ReportError leaves subscribers on the last good evaluation.
func (r *WSReporter) ReportError(ctx context.Context, err error) {}

// Stop disconnects every subscriber.
func (r *WSReporter) Stop() error {
	r.hub.Close()
	return nil
}
