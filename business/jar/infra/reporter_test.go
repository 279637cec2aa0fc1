package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/logger"
	"github.com/fd1az/feejar-monitor/pkg/ui"
)

func init() {
	color.NoColor = true
}

func evaluation(t *testing.T) *app.Evaluation {
	t.Helper()

	usdc, err := domain.NewTokenBalance("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC",
		big.NewInt(500_000_000), 6, decimal.NewFromInt(1))
	require.NoError(t, err)
	resource, err := domain.NewResource(common.HexToAddress("0x4444444444444444444444444444444444444444"),
		"RSRC", 18, decimal.NewFromInt(5))
	require.NoError(t, err)
	gas, err := domain.NewGasContext(decimal.NewFromInt(20), decimal.NewFromInt(3000))
	require.NoError(t, err)

	engine, err := domain.NewEngine(domain.DefaultEngineConfig())
	require.NoError(t, err)
	threshold, _ := new(big.Int).SetString("10000000000000000000", 10)
	sel, err := engine.SelectOptimalBurn([]domain.TokenBalance{usdc}, resource, threshold, gas)
	require.NoError(t, err)

	return &app.Evaluation{
		Snapshot: &app.Snapshot{
			BlockNumber: 42,
			Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Tokens:      []domain.TokenBalance{usdc},
			Resource:    resource,
			Gas:         gas,
		},
		Selection: sel,
		Formatted: domain.Format(sel.Result),
		Duration:  15 * time.Millisecond,
	}
}

func TestNewConsoleReporter_RejectsUnknownFormat(t *testing.T) {
	_, err := NewConsoleReporterTo(&bytes.Buffer{}, "xml")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidFormat, apperror.GetCode(err))
}

func TestConsoleReporter_Text(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewConsoleReporterTo(&buf, "")
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	r.Report(context.Background(), evaluation(t))
	require.NoError(t, r.Stop())

	out := buf.String()
	assert.Contains(t, out, "Fee Jar Monitor Started")
	assert.Contains(t, out, "PROFITABLE")
	assert.NotContains(t, out, "NOT PROFITABLE")
	assert.Contains(t, out, "block #42")
	assert.Contains(t, out, "10.000000 RSRC")
	assert.Contains(t, out, "USDC")
	assert.Contains(t, out, "$500.00")
	assert.Contains(t, out, "Fee Jar Monitor Stopped")
}

func TestConsoleReporter_JSON(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewConsoleReporterTo(&buf, "JSON")
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	r.Report(context.Background(), evaluation(t))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "10.000000", got["resourceAmount"])
	assert.Equal(t, "$500.00", got["claimableValueUSD"])
	assert.Equal(t, true, got["isProfitable"])
	assert.Equal(t, float64(42), got["blockNumber"])
}

func TestConsoleReporter_YAML(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewConsoleReporterTo(&buf, "yaml")
	require.NoError(t, err)

	r.Report(context.Background(), evaluation(t))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(bytes.TrimPrefix(buf.Bytes(), []byte("---\n")), &got))
	assert.Equal(t, "10.000000", got["resourceAmount"])
	assert.Equal(t, true, got["isProfitable"])
	assert.Equal(t, 42, got["blockNumber"])
}

func TestConsoleReporter_ReportError(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewConsoleReporterTo(&buf, "json")
	require.NoError(t, err)

	r.ReportError(context.Background(), apperror.New(apperror.CodeEthereumRPCError))

	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, string(apperror.CodeEthereumRPCError), got["code"])
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func TestTUIReporter(t *testing.T) {
	sender := &recordingSender{}
	r := NewTUIReporter(sender)
	ev := evaluation(t)

	require.NoError(t, r.Start(context.Background()))
	r.Report(context.Background(), ev)
	r.ReportError(context.Background(), errors.New("boom"))

	require.Len(t, sender.msgs, 4)
	assert.Equal(t, ui.StartupMsg{Step: "jar", Status: "connected"}, sender.msgs[0])
	assert.Equal(t, ui.BlockMsg{Number: 42, Timestamp: ev.Snapshot.Timestamp}, sender.msgs[1])
	assert.Equal(t, ui.EvaluationMsg{Evaluation: ev, Duration: 15 * time.Millisecond}, sender.msgs[2])
	assert.IsType(t, ui.ErrorMsg{}, sender.msgs[3])
}

type recordingHub struct {
	published []any
	closed    bool
}

func (h *recordingHub) Publish(ctx context.Context, v any) error {
	h.published = append(h.published, v)
	return nil
}

func (h *recordingHub) Close() { h.closed = true }

func TestWSReporter(t *testing.T) {
	hub := &recordingHub{}
	r := NewWSReporter(hub, logger.NewNop())
	ev := evaluation(t)

	r.Report(context.Background(), ev)
	r.ReportError(context.Background(), errors.New("ignored"))
	require.NoError(t, r.Stop())

	require.Len(t, hub.published, 1)
	assert.Equal(t, ev.Payload(), hub.published[0])
	assert.True(t, hub.closed)
}
