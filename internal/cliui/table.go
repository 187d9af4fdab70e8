package cliui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
)

// FlowTable renders a list of flow summaries for "flowctl status".
func FlowTable(rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "NAME", "STATUS", "CURSOR", "VERSION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})
	for _, r := range rows {
		t.Row(r...)
	}
	return t.Render()
}

// StepTable renders a flow's step records for "flowctl read".
func StepTable(rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("CURSOR", "KEY", "CREATED_AT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})
	for _, r := range rows {
		t.Row(r...)
	}
	return t.Render()
}

// Warn renders a warning line (e.g. engine version skew on rehydrate).
func Warn(msg string) string {
	return warnStyle.Render(msg)
}
