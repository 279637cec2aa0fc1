// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/feejar-monitor/business/jar/domain"
)

// ResultComponent renders the latest profitability breakdown. Every value
// arrives formatted; nothing is computed here.
type ResultComponent struct {
	result   *domain.FormattedResult
	block    uint64
	resource string
}

// NewResultComponent creates a new result component.
func NewResultComponent() *ResultComponent {
	return &ResultComponent{}
}

// Update replaces the displayed result.
func (r *ResultComponent) Update(result domain.FormattedResult, block uint64, resourceSymbol string) {
	r.result = &result
	r.block = block
	r.resource = resourceSymbol
}

// View renders the result component.
func (r *ResultComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if r.result == nil {
		return headerStyle.Render("PROFITABILITY") + "\n\n" + dimStyle.Render("  Waiting for first evaluation...")
	}
	res := r.result

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("PROFITABILITY (block #%d)", r.block)))
	b.WriteString("\n\n")

	line := func(label, value string, style lipgloss.Style) {
		b.WriteString(fmt.Sprintf("  %-18s %s\n", label, style.Render(value)))
	}

	plain := lipgloss.NewStyle()
	line("Burn", res.ResourceAmount+" "+r.resource, plain)
	line("Burn cost", res.ResourceCostUSD, negativeStyle)
	line("Claimable value", res.ClaimableValueUSD, positiveStyle)
	line("Gas cost", res.GasCostUSD, negativeStyle)
	line("Estimated gas", fmt.Sprintf("%d units", res.EstimatedGas), dimStyle)
	b.WriteString(dimStyle.Render("  " + strings.Repeat("─", 40)))
	b.WriteString("\n")

	profitStyle := negativeStyle
	if res.IsProfitable {
		profitStyle = positiveStyle
	}
	line("Gross profit", res.GrossProfitUSD, profitStyle)
	line("Net profit", res.NetProfitUSD+"  ("+res.ProfitPercent+")", profitStyle.Bold(true))
	line("Minimum output", res.MinimumOutputUSD, dimStyle)

	if res.Filtered {
		line("Dust left behind", fmt.Sprintf("%d tokens, saves %s gas", res.DustCount, res.SavedGas), dimStyle)
	}

	b.WriteString("\n")
	if res.IsProfitable {
		b.WriteString(positiveStyle.Bold(true).Render("  ✓ CLAIM IS PROFITABLE"))
	} else {
		b.WriteString(negativeStyle.Render("  ✗ Not profitable at current prices"))
	}
	b.WriteString("\n")

	return b.String()
}
