// Package practice runs a single question interactively in the terminal.
package practice

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/ui/components"
	"github.com/abhisek/mcqforge/internal/ui/layout"
	"github.com/abhisek/mcqforge/internal/ui/theme"
)

// Model shows one question and reveals the answer after a choice.
type Model struct {
	title  string
	card   components.MCQCard
	width  int
	height int
}

// New creates a practice model for q.
func New(title string, q *mcq.MCQ) Model {
	return Model{title: title, card: components.NewMCQCard(q, 0)}
}

// Card returns the card state, including the submitted choice.
func (m Model) Card() components.MCQCard {
	return m.card
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.card.Width = max(msg.Width-4, 20)
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "enter":
			if m.card.Submitted {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.card, cmd = m.card.Update(msg)
	return m, cmd
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	f := layout.Frame{Title: m.title, Width: m.width, Height: m.height}
	if !f.Ready() {
		return v
	}
	f.Hints = []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "A-D/Enter", Description: "Answer"},
		{Key: "q", Description: "Quit"},
	}
	if m.card.Submitted {
		if m.card.IsCorrect() {
			f.Status = theme.Correct.Render("correct")
		} else {
			f.Status = theme.Incorrect.Render("incorrect")
		}
		f.Hints = []layout.KeyHint{{Key: "Enter/q", Description: "Quit"}}
	}
	v.SetContent(f.Render(m.card.View()))
	return v
}

// Run shows the question until the user quits and returns the final model.
func Run(m Model) (Model, error) {
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}
