// Package infra contains the jar's reporters.
package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v2"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/internal/apperror"
)

// Output formats understood by ConsoleReporter.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const rule = "================================================================================"

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	mu     sync.Mutex
	out    io.Writer
	format string
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter(format string) (*ConsoleReporter, error) {
	return NewConsoleReporterTo(os.Stdout, format)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to out.
func NewConsoleReporterTo(out io.Writer, format string) (*ConsoleReporter, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatText
	}
	switch format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, apperror.Validation(apperror.CodeInvalidFormat, fmt.Sprintf("unknown output format %q", format))
	}
	return &ConsoleReporter{out: out, format: format}, nil
}

// Start prints the banner in text mode.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	if r.format != FormatText {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	color.New(color.FgHiWhite, color.Bold).Fprintln(r.out, "Fee Jar Monitor Started")
	fmt.Fprintln(r.out, "=======================")
	return nil
}

// Report writes one evaluation.
func (r *ConsoleReporter) Report(ctx context.Context, ev *app.Evaluation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.format {
	case FormatJSON:
		b, err := json.Marshal(ev.Payload())
		if err != nil {
			fmt.Fprintf(r.out, "{\"error\":%q}\n", err.Error())
			return
		}
		fmt.Fprintln(r.out, string(b))
	case FormatYAML:
		b, err := yaml.Marshal(ev.Payload())
		if err != nil {
			fmt.Fprintf(r.out, "error: %q\n", err.Error())
			return
		}
		fmt.Fprintln(r.out, "---")
		r.out.Write(b)
	default:
		r.writeText(ev)
	}
}

func (r *ConsoleReporter) writeText(ev *app.Evaluation) {
	f := ev.Formatted
	snap := ev.Snapshot

	verdict := color.New(color.FgHiWhite, color.BgRed)
	label := "NOT PROFITABLE"
	if f.IsProfitable {
		verdict = color.New(color.FgHiWhite, color.BgGreen)
		label = "PROFITABLE"
	}

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	verdict.Fprintf(r.out, " %s ", label)
	fmt.Fprintf(r.out, "  block #%d  %s\n", snap.BlockNumber, snap.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Burn:           %s %s\n", f.ResourceAmount, snap.Resource.Symbol())
	fmt.Fprintf(r.out, "Burn Cost:      %s\n", f.ResourceCostUSD)
	fmt.Fprintf(r.out, "Claimable:      %s (%d tokens)\n", f.ClaimableValueUSD, len(f.TokenBreakdown))
	fmt.Fprintf(r.out, "Gas:            %s (%d units @ %s gwei)\n", f.GasCostUSD, f.EstimatedGas, snap.Gas.GasPriceGwei().StringFixed(2))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "TOKENS")
	for _, t := range f.TokenBreakdown {
		fmt.Fprintf(r.out, "  %-10s %20s  %12s  %s\n", t.Symbol, t.Balance, t.ValueUSD, t.Address)
	}
	if f.DustCount > 0 {
		color.New(color.FgYellow).Fprintf(r.out, "  %d dust token(s) left behind, saving %s gas\n", f.DustCount, f.SavedGas)
	}
	if n := len(snap.Unpriced); n > 0 {
		color.New(color.FgYellow).Fprintf(r.out, "  %d token(s) without a price\n", n)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PROFIT")
	fmt.Fprintf(r.out, "  Gross:          %s\n", f.GrossProfitUSD)
	net := color.New(color.FgRed)
	if f.IsProfitable {
		net = color.New(color.FgGreen)
	}
	net.Fprintf(r.out, "  Net:            %s (%s)\n", f.NetProfitUSD, f.ProfitPercent)
	fmt.Fprintf(r.out, "  Min Output:     %s\n", f.MinimumOutputUSD)
	fmt.Fprintln(r.out, rule)
}

// ReportError writes a failed evaluation.
func (r *ConsoleReporter) ReportError(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := string(apperror.GetCode(err))
	switch r.format {
	case FormatJSON:
		b, _ := json.Marshal(map[string]string{"error": err.Error(), "code": code})
		fmt.Fprintln(r.out, string(b))
	case FormatYAML:
		b, _ := yaml.Marshal(map[string]string{"error": err.Error(), "code": code})
		fmt.Fprintln(r.out, "---")
		r.out.Write(b)
	default:
		color.New(color.FgRed).Fprintf(r.out, "[%s] evaluation failed: %v\n", time.Now().Format("15:04:05"), err)
	}
}

// Stop prints the footer in text mode.
func (r *ConsoleReporter) Stop() error {
	if r.format != FormatText {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Fee Jar Monitor Stopped")
	return nil
}
