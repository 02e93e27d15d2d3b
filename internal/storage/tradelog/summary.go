package tradelog

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	summaryTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	summaryHeaderStyle = lipgloss.NewStyle().Bold(true)
)

// Summarize renders the per-action trade counts as a bordered table.
func (j *Journal) Summarize() string {
	counts := sortedActionCounts(j.ActionCounts())

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return summaryHeaderStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("Action", "Count")
	for _, c := range counts {
		t.Row(c.Action, strconv.Itoa(c.Count))
	}

	return summaryTitleStyle.Render("Trade Plan Summary") + "\n" + t.Render()
}
