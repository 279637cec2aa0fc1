package ui

import (
	"errors"
	"math/big"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func testEvaluation(t *testing.T) *app.Evaluation {
	t.Helper()
	tok, err := domain.NewTokenBalance("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC",
		big.NewInt(500_000_000), 6, decimal.NewFromInt(1))
	require.NoError(t, err)
	res, err := domain.NewResource(common.HexToAddress("0x4444444444444444444444444444444444444444"),
		"RSRC", 18, decimal.NewFromInt(5))
	require.NoError(t, err)
	gas, err := domain.NewGasContext(decimal.NewFromInt(20), decimal.NewFromInt(3000))
	require.NoError(t, err)
	engine, err := domain.NewEngine(domain.DefaultEngineConfig())
	require.NoError(t, err)

	sel, err := engine.SelectOptimalBurn([]domain.TokenBalance{tok}, res, big.NewInt(1e18), gas)
	require.NoError(t, err)

	return &app.Evaluation{
		Snapshot: &app.Snapshot{
			BlockNumber: 77,
			Timestamp:   time.Now(),
			Tokens:      []domain.TokenBalance{tok},
			Resource:    res,
			Gas:         gas,
		},
		Selection: sel,
		Formatted: domain.Format(sel.Result),
	}
}

func TestModel_WelcomeAdvancesOnKey(t *testing.T) {
	started := make(chan struct{}, 1)
	OnStartModules = func() { started <- struct{}{} }
	t.Cleanup(func() { OnStartModules = nil })

	m := update(t, New(), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Equal(t, PhaseStartup, m.phase)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("modules were not started")
	}
}

func TestModel_StartupCompletes(t *testing.T) {
	m := New()
	m.phase = PhaseStartup

	for _, step := range startupOrder[:3] {
		m = update(t, m, StartupMsg{Step: step, Status: "connected"})
		assert.Equal(t, PhaseStartup, m.phase)
	}
	m = update(t, m, StartupMsg{Step: "jar", Status: "connected"})
	assert.Equal(t, PhaseDashboard, m.phase)
}

func TestModel_Evaluation(t *testing.T) {
	m := New()
	m.phase = PhaseStartup

	m = update(t, m, EvaluationMsg{Evaluation: testEvaluation(t), Duration: 40 * time.Millisecond})
	m = update(t, m, EvaluationMsg{Evaluation: testEvaluation(t), Duration: 20 * time.Millisecond})

	assert.Equal(t, PhaseDashboard, m.phase)
	assert.Equal(t, uint64(77), m.currentBlock)
	assert.Equal(t, "20.0", m.gasGwei)
	assert.Equal(t, "3000.00", m.ethPrice)
	assert.Equal(t, 2, m.history.Len())

	st := m.stats.Stats()
	assert.Equal(t, int64(2), st.Evaluations)
	assert.Equal(t, int64(2), st.Profitable)
	assert.InDelta(t, 30, st.AvgLatencyMs, 0.001)

	assert.Contains(t, m.View(), "Fee Jar Monitor")
}

func TestModel_PauseFreezesDisplay(t *testing.T) {
	m := New()
	m.phase = PhaseDashboard

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	require.True(t, m.paused)

	m = update(t, m, EvaluationMsg{Evaluation: testEvaluation(t)})
	assert.Equal(t, 0, m.history.Len())
	assert.Equal(t, int64(1), m.stats.Stats().Evaluations)
}

func TestModel_Errors(t *testing.T) {
	m := New()
	m.phase = PhaseDashboard

	for i := 0; i < 5; i++ {
		m = update(t, m, ErrorMsg{Error: errors.New("rpc down")})
	}
	assert.Len(t, m.errors, 3)
	assert.Equal(t, int64(5), m.stats.Stats().Errors)
	assert.Contains(t, m.View(), "rpc down")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Empty(t, m.errors)
}

func TestModel_Quit(t *testing.T) {
	next, cmd := New().Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).quitting)
}
