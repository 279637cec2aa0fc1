package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	jarApp "github.com/fd1az/feejar-monitor/business/jar/app"
	jarInfra "github.com/fd1az/feejar-monitor/business/jar/infra"
	"github.com/fd1az/feejar-monitor/internal/monolith"
	"github.com/fd1az/feejar-monitor/pkg/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the jar in a terminal dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context())
	},
}

func runWatch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// the dashboard owns the terminal
	e, err := bootstrap(ctx, io.Discard)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		monitor, err := startWatched(ctx, e)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		if err := monitor.Stop(); err != nil {
			e.log.Error(ctx, "error stopping monitor", "error", err)
		}
		errCh <- nil
	}()

	runErr := ui.Run()
	cancel()
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(shutdownTimeout):
		return nil
	}
}

// startWatched starts the modules one at a time so the startup screen can
// show each step, then starts the monitor.
func startWatched(ctx context.Context, e *env) (*jarApp.Monitor, error) {
	ui.Send(ui.StartupMsg{Step: "config", Status: "connected"})

	steps := []struct {
		step, conn string
		module     monolith.Module
	}{
		{"ethereum", "Ethereum", e.modules[0]},
		{"pricing", "Pricing", e.modules[1]},
		{"jar", "", e.modules[2]},
	}
	for _, s := range steps {
		ui.Send(ui.StartupMsg{Step: s.step, Status: "connecting"})
		began := time.Now()
		if err := e.mono.StartModules(ctx, s.module); err != nil {
			ui.Send(ui.StartupMsg{Step: s.step, Status: "failed", Message: err.Error()})
			return nil, err
		}
		if s.conn != "" {
			ui.Send(ui.StartupMsg{Step: s.step, Status: "connected"})
			ui.Send(ui.ConnectionStatusMsg{Name: s.conn, Connected: true, Latency: time.Since(began)})
		}
	}
	e.started = true

	// TUIReporter.Start completes the jar step
	monitor := newMonitor(e, []jarApp.Reporter{jarInfra.NewTUIReporter(nil)})
	if err := monitor.Start(ctx); err != nil {
		ui.Send(ui.StartupMsg{Step: "jar", Status: "failed", Message: err.Error()})
		return nil, err
	}
	return monitor, nil
}
