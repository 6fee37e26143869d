package hrmscli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/phillip-england/hrms/internal/models"
)

var (
	borderColor = lipgloss.Color("#9ca3af")
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	presentStyle = cellStyle.Foreground(lipgloss.Color("#16a34a"))
	absentStyle  = cellStyle.Foreground(lipgloss.Color("#dc2626"))
	mutedStyle   = cellStyle.Foreground(lipgloss.Color("#6b7280"))

	titleStyle = lipgloss.NewStyle().Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706")).Bold(true)
)

// renderTable draws rows under headers. statusCol, when not negative, is
// colored by attendance status.
func renderTable(headers []string, rows [][]string, statusCol int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != statusCol || row < 0 || row >= len(rows) {
				return cellStyle
			}
			return statusStyle(models.RowStatus(rows[row][col]))
		})
	return t.Render() + "\n"
}

func statusStyle(status models.RowStatus) lipgloss.Style {
	switch status {
	case models.RowPresent:
		return presentStyle
	case models.RowAbsent:
		return absentStyle
	default:
		return mutedStyle
	}
}

func renderTitle(text string) string {
	return titleStyle.Render(text) + "\n"
}

func renderWarning(lines ...string) string {
	return warnStyle.Render(strings.Join(lines, "\n")) + "\n"
}
