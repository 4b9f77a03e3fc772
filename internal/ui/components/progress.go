package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/mcqforge/internal/ui/theme"
)

// ProgressBar is a one-line bar with an optional label and a percentage.
type ProgressBar struct {
	Label   string
	Percent float64 // 0..1
	Width   int     // whole line, label and percentage included
}

// NewProgressBar creates a bar for done out of total. A zero total renders
// empty; done beyond total renders full.
func NewProgressBar(label string, done, total, width int) ProgressBar {
	p := ProgressBar{Label: label, Width: width}
	if total > 0 {
		p.Percent = min(max(float64(done)/float64(total), 0), 1)
	}
	return p
}

func (p ProgressBar) View() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label))
		b.WriteString("  ")
	}
	pct := fmt.Sprintf("%4d%%", int(p.Percent*100))

	cells := max(p.Width-lipgloss.Width(b.String())-len(pct)-1, 4)
	filled := int(float64(cells) * p.Percent)
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Render(strings.Repeat("█", filled)))
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("░", cells-filled)))
	b.WriteString(" ")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(pct))
	return b.String()
}
