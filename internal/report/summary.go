package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Coverage ratio bands used for colouring.
const (
	LowCoverage    = 75.0
	MediumCoverage = 90.0
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	frameStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
)

// RenderSummary renders the children of root and a total row as a framed
// table. Rows are limited to maxRows children; zero means no limit.
func RenderSummary(root *Node, dir string, maxRows int) string {
	rows := root.Files
	more := 0
	if maxRows > 0 && len(rows) > maxRows {
		more = len(rows) - maxRows
		rows = rows[:maxRows]
	}

	width := len("Total")
	for _, c := range rows {
		if w := len(displayName(c)); w > width {
			width = w
		}
	}

	if dir == "" {
		dir = "."
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Coverage: %s", dir)),
		"",
		headerStyle.Render(fmt.Sprintf("%-*s  %24s  %24s", width, "", "lines", "functions")),
	}
	for _, c := range rows {
		lines = append(lines, summaryRow(displayName(c), c, width))
	}
	if more > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("... %d more", more)))
	}
	lines = append(lines, summaryRow("Total", root, width))
	return frameStyle.Render(strings.Join(lines, "\n"))
}

func displayName(n *Node) string {
	if n.IsFile() {
		return n.Name
	}
	return n.Name + "/"
}

func summaryRow(label string, n *Node, width int) string {
	return fmt.Sprintf("%-*s  %s  %s", width, label,
		ratioCell(n.LinesHit, n.Lines), ratioCell(n.FuncsHit, n.Funcs))
}

func ratioCell(hit, found int) string {
	pct := Percent(hit, found)
	if pct < 0 {
		return dimStyle.Render(fmt.Sprintf("%7d / %-7d %6s", 0, 0, "-"))
	}
	cell := fmt.Sprintf("%7d / %-7d %5.1f%%", hit, found, pct)
	switch {
	case pct < LowCoverage:
		return lowStyle.Render(cell)
	case pct < MediumCoverage:
		return mediumStyle.Render(cell)
	default:
		return highStyle.Render(cell)
	}
}
