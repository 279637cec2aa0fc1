package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fd1az/feejar-monitor/business/blockchain"
	"github.com/fd1az/feejar-monitor/business/jar"
	jarApp "github.com/fd1az/feejar-monitor/business/jar/app"
	jarDI "github.com/fd1az/feejar-monitor/business/jar/di"
	"github.com/fd1az/feejar-monitor/business/pricing"
	pricingDI "github.com/fd1az/feejar-monitor/business/pricing/di"
	"github.com/fd1az/feejar-monitor/internal/apm"
	"github.com/fd1az/feejar-monitor/internal/config"
	"github.com/fd1az/feejar-monitor/internal/logger"
	"github.com/fd1az/feejar-monitor/internal/metrics"
	"github.com/fd1az/feejar-monitor/internal/monolith"
)

const shutdownTimeout = 10 * time.Second

// container is what the commands need from the monolith.
type container interface {
	monolith.Monolith
	RegisterModules(modules ...monolith.Module) error
	StartModules(ctx context.Context, modules ...monolith.Module) error
	Close() error
}

// env is the wired application shared by every command.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	mono    container
	modules []monolith.Module
	started bool

	traces  apm.TraceProvider
	meters  metrics.MetricProvider
	metrics *metrics.Server
}

// bootstrap loads config, sets up telemetry and registers the modules.
// Logs go to logOut; the TUI passes io.Discard.
func bootstrap(ctx context.Context, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}

	var file *logger.FileConfig
	if cfg.Log.File != "" {
		file = &logger.FileConfig{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
	}
	log := logger.New(logOut, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, file)
	log.Info(ctx, "starting fee jar monitor",
		"version", version,
		"environment", cfg.App.Environment)

	e := &env{cfg: cfg, log: log}

	if cfg.Telemetry.Enabled {
		e.traces, err = apm.NewTraceProvider(log, apm.Options{
			Provider:    apm.ParseProvider(cfg.Telemetry.TraceExporter),
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}

		e.meters, err = metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
		)
		if err != nil {
			e.close(ctx)
			return nil, fmt.Errorf("failed to start metrics: %w", err)
		}
		e.metrics = metrics.NewServer(cfg.Telemetry.PrometheusPort, log)
		e.metrics.Start(ctx)
	}

	mono, err := monolith.New(ctx, cfg, log, version)
	if err != nil {
		e.close(ctx)
		return nil, fmt.Errorf("failed to create monolith: %w", err)
	}
	e.mono = mono

	e.modules = []monolith.Module{
		&blockchain.Module{}, // heads, gas, node access
		&pricing.Module{},    // USD prices
		&jar.Module{},        // depends on both
	}
	if err := mono.RegisterModules(e.modules...); err != nil {
		e.close(ctx)
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}

	return e, nil
}

func (e *env) start(ctx context.Context) error {
	if err := e.mono.StartModules(ctx, e.modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	e.started = true
	return nil
}

func (e *env) jarService() *jarApp.JarService {
	return jarDI.GetJarService(e.mono.Services())
}

// close releases everything bootstrap acquired, in reverse order.
func (e *env) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if e.started {
		e.jarService().Close()
		pricingDI.GetPricingService(e.mono.Services()).Close()
	}
	if e.mono != nil {
		_ = e.mono.Close()
	}
	if e.metrics != nil {
		if err := e.metrics.Stop(ctx); err != nil {
			e.log.Warn(ctx, "metrics server stop", "error", err)
		}
	}
	if e.meters != nil {
		if err := e.meters.Shutdown(ctx); err != nil {
			e.log.Warn(ctx, "meter provider shutdown", "error", err)
		}
	}
	if e.traces != nil {
		if err := e.traces.Stop(); err != nil {
			e.log.Warn(ctx, "trace provider stop", "error", err)
		}
	}
	_ = e.log.Sync()
}
