package components

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/feejar-monitor/business/jar/domain"
)

// TokensComponent lists the claimable tokens of the latest evaluation.
type TokensComponent struct {
	table table.Model
	count int
}

// NewTokensComponent creates a new tokens component.
func NewTokensComponent(height int) *TokensComponent {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Token", Width: 8},
			{Title: "Balance", Width: 20},
			{Title: "Value", Width: 14},
		}),
		table.WithHeight(height),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#374151")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#FFFFFF")).Bold(false)
	t.SetStyles(styles)

	return &TokensComponent{table: t}
}

// Update replaces the rows with the claimable breakdown.
func (c *TokensComponent) Update(breakdown []domain.TokenBreakdown) {
	rows := make([]table.Row, 0, len(breakdown))
	for _, tb := range breakdown {
		rows = append(rows, table.Row{tb.Symbol, tb.Balance, tb.ValueUSD})
	}
	c.table.SetRows(rows)
	c.count = len(rows)
}

// ScrollUp moves the cursor up.
func (c *TokensComponent) ScrollUp() {
	c.table.MoveUp(1)
}

// ScrollDown moves the cursor down.
func (c *TokensComponent) ScrollDown() {
	c.table.MoveDown(1)
}

// View renders the tokens component.
func (c *TokensComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if c.count == 0 {
		return headerStyle.Render("CLAIMABLE TOKENS") + "\n\n" + dimStyle.Render("  Nothing worth claiming yet")
	}
	return headerStyle.Render("CLAIMABLE TOKENS") + "\n\n" + c.table.View()
}
