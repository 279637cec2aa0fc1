package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	blockchainDI "github.com/fd1az/feejar-monitor/business/blockchain/di"
	jarApp "github.com/fd1az/feejar-monitor/business/jar/app"
	jarDI "github.com/fd1az/feejar-monitor/business/jar/di"
	jarInfra "github.com/fd1az/feejar-monitor/business/jar/infra"
	"github.com/fd1az/feejar-monitor/business/jar/infra/httpapi"
)

var serveOutput string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and re-evaluate the jar on every block",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveOutput, "output", "o", "none", "also print evaluations to stdout: none, text, json or yaml")
}

func runServe(ctx context.Context) error {
	e, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	if err := e.start(ctx); err != nil {
		return err
	}

	sr := e.mono.Services()
	reporters := []jarApp.Reporter{jarInfra.NewWSReporter(jarDI.GetHub(sr), e.log)}
	if serveOutput != "none" {
		console, err := jarInfra.NewConsoleReporter(serveOutput)
		if err != nil {
			return err
		}
		reporters = append(reporters, console)
	}

	monitor := newMonitor(e, reporters)
	if err := monitor.Start(ctx); err != nil {
		return err
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		Port:         e.cfg.API.Port,
		ReadTimeout:  e.cfg.API.ReadTimeout,
		WriteTimeout: e.cfg.API.WriteTimeout,
	}, e.mono.Router(), e.log)
	server.Start(ctx)

	select {
	case <-ctx.Done():
	case <-monitor.Done():
	}
	e.log.Info(ctx, "shutting down")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Stop(stopCtx); err != nil {
		e.log.Error(ctx, "error stopping api server", "error", err)
	}
	if err := monitor.Stop(); err != nil {
		e.log.Error(ctx, "error stopping monitor", "error", err)
	}
	return nil
}

func newMonitor(e *env, reporters []jarApp.Reporter) *jarApp.Monitor {
	sr := e.mono.Services()
	return jarApp.NewMonitor(
		blockchainDI.GetBlockchainService(sr),
		jarDI.GetJarService(sr),
		reporters,
		jarApp.MonitorConfig{MinInterval: e.cfg.Jar.MinEvaluationInterval},
		e.log,
	)
}
