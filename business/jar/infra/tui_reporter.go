package infra

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/pkg/ui"
)

// Sender delivers messages to a running Bubble Tea program.
type Sender interface {
	Send(msg tea.Msg)
}

type senderFunc func(tea.Msg)

func (f senderFunc) Send(msg tea.Msg) { f(msg) }

// TUIReporter implements app.Reporter for the Bubble Tea dashboard.
type TUIReporter struct {
	sender Sender
}

// NewTUIReporter creates a TUIReporter. A nil sender targets the global ui.Program.
func NewTUIReporter(sender Sender) *TUIReporter {
	if sender == nil {
		sender = senderFunc(ui.Send)
	}
	return &TUIReporter{sender: sender}
}

// Start marks the jar step of the startup screen as ready.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.sender.Send(ui.StartupMsg{Step: "jar", Status: "connected"})
	return nil
}

// Report sends the evaluation to the dashboard.
func (r *TUIReporter) Report(ctx context.Context, ev *app.Evaluation) {
	r.sender.Send(ui.BlockMsg{Number: ev.Snapshot.BlockNumber, Timestamp: ev.Snapshot.Timestamp})
	r.sender.Send(ui.EvaluationMsg{Evaluation: ev, Duration: ev.Duration})
}

// ReportError sends the failure to the dashboard's error panel.
func (r *TUIReporter) ReportError(ctx context.Context, err error) {
	r.sender.Send(ui.ErrorMsg{Error: err})
}

// Stop is a no-op; the program owns its own lifecycle.
func (r *TUIReporter) Stop() error {
	return nil
}
