// Package layout draws the chrome shared by the terminal screens: a bar
// with the app name, title and status on top, key hints at the bottom.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/mcqforge/internal/ui/theme"
)

const (
	MinWidth  = 60
	MinHeight = 20
)

const appName = "mcqforge"

// KeyHint is one "key description" pair in the footer.
type KeyHint struct {
	Key         string
	Description string
}

// Frame describes one screen's chrome at the current terminal size.
type Frame struct {
	Title  string
	Status string
	Hints  []KeyHint
	Width  int
	Height int
}

// Ready reports whether a size has been received yet.
func (f Frame) Ready() bool {
	return f.Width > 0 && f.Height > 0
}

// Render wraps body in the header and footer, padding it to fill the
// terminal. Terminals below MinWidth x MinHeight get a resize notice instead.
func (f Frame) Render(body string) string {
	if f.Width < MinWidth || f.Height < MinHeight {
		return lipgloss.NewStyle().
			Width(f.Width).
			Height(f.Height).
			Align(lipgloss.Center).
			Foreground(theme.Text).
			Render(fmt.Sprintf("Terminal is %d x %d.\n\nmcqforge needs at least %d x %d.", f.Width, f.Height, MinWidth, MinHeight))
	}

	header := bar(f.Width).Render(f.headerLine())
	footer := bar(f.Width).Render("  " + hintLine(f.Hints))
	bodyHeight := max(f.Height-lipgloss.Height(header)-lipgloss.Height(footer), 0)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Width(f.Width).Height(bodyHeight).Render(body),
		footer,
	)
}

// headerLine centres the title between the app name and the status.
func (f Frame) headerLine() string {
	left := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  " + appName)
	title := lipgloss.NewStyle().Foreground(theme.Text).Render(f.Title)
	status := lipgloss.NewStyle().Foreground(theme.Accent).Render(f.Status)

	inner := max(f.Width-4, 0)
	lw, tw, sw := lipgloss.Width(left), lipgloss.Width(title), lipgloss.Width(status)
	gapL := max((inner-tw)/2-lw, 1)
	gapR := max(inner-lw-gapL-tw-sw, 1)
	return left + strings.Repeat(" ", gapL) + title + strings.Repeat(" ", gapR) + status
}

func hintLine(hints []KeyHint) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = key.Render(h.Key) + " " + desc.Render(h.Description)
	}
	return strings.Join(parts, "   ")
}

func bar(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Background(theme.BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)
}
