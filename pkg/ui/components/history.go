package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// HistoryRow is one past evaluation.
type HistoryRow struct {
	Timestamp   string
	BlockNumber uint64
	NetProfit   string
	Percent     string
	Claimable   int
	Dust        int
	Profitable  bool
}

// HistoryComponent renders the most recent evaluations, newest first.
type HistoryComponent struct {
	rows    []HistoryRow
	maxRows int
	offset  int
	visible int
}

// NewHistoryComponent creates a new history component.
func NewHistoryComponent(maxRows, visible int) *HistoryComponent {
	return &HistoryComponent{
		rows:    make([]HistoryRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add adds a new evaluation to the list.
func (h *HistoryComponent) Add(row HistoryRow) {
	h.rows = append([]HistoryRow{row}, h.rows...)
	if len(h.rows) > h.maxRows {
		h.rows = h.rows[:h.maxRows]
	}
}

// Len returns the number of stored rows.
func (h *HistoryComponent) Len() int {
	return len(h.rows)
}

// Clear clears all rows.
func (h *HistoryComponent) Clear() {
	h.rows = make([]HistoryRow, 0)
	h.offset = 0
}

// ScrollUp moves the window towards newer rows.
func (h *HistoryComponent) ScrollUp() {
	if h.offset > 0 {
		h.offset--
	}
}

// ScrollDown moves the window towards older rows.
func (h *HistoryComponent) ScrollDown() {
	if h.offset+h.visible < len(h.rows) {
		h.offset++
	}
}

// View renders the history component.
func (h *HistoryComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	profitableStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	unprofitableStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	if len(h.rows) == 0 {
		return headerStyle.Render("HISTORY") + "\n\nNo evaluations yet..."
	}

	result := headerStyle.Render(fmt.Sprintf("HISTORY (last %d)", h.maxRows)) + "\n"
	result += "┌──────────┬──────────┬──────────────┬──────────┬────────────┬───┐\n"
	result += "│   Time   │  Block   │  Net profit  │ Percent  │ Claim/Dust │   │\n"
	result += "├──────────┼──────────┼──────────────┼──────────┼────────────┼───┤\n"

	end := min(h.offset+h.visible, len(h.rows))
	for _, row := range h.rows[h.offset:end] {
		icon := profitableStyle.Render("✓")
		if !row.Profitable {
			icon = unprofitableStyle.Render("✗")
		}

		result += fmt.Sprintf("│ %8s │%9d │%13s │%9s │ %4d/%-5d │ %s │\n",
			row.Timestamp,
			row.BlockNumber,
			row.NetProfit,
			row.Percent,
			row.Claimable,
			row.Dust,
			icon,
		)
	}

	result += "└──────────┴──────────┴──────────────┴──────────┴────────────┴───┘"

	return result
}
