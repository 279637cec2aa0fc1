// Package ui provides the Bubble Tea dashboard for the fee jar monitor.
package ui

import (
	"time"

	"github.com/fd1az/feejar-monitor/business/jar/app"
)

// Message types for TUI updates

// EvaluationMsg is sent after every jar evaluation.
type EvaluationMsg struct {
	Evaluation *app.Evaluation
	Duration   time.Duration
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// ErrorMsg is sent when an evaluation fails.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "config", "ethereum", "pricing", "jar"
	Status  string // "connecting", "connected", "failed"
	Message string
}
