package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// renderPlacementTable formats place output as a bordered table.
func renderPlacementTable(rows []placementRow) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("ID", "Task", "Priority", "Status", "X", "Y", "W", "H", "Source").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, r := range rows {
		t.Row(
			strconv.FormatInt(r.ID, 10),
			r.Text,
			r.Priority,
			r.Status,
			formatUnits(r.X),
			formatUnits(r.Y),
			formatUnits(r.Width),
			formatUnits(r.Height),
			r.Source,
		)
	}
	return t.String()
}

// formatUnits prints canvas units without trailing zeros.
func formatUnits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
