package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/ui/theme"
)

// MCQCard renders a question with its options. In practice mode the options
// can be navigated and one answer submitted.
type MCQCard struct {
	MCQ       *mcq.MCQ
	Selected  int
	Submitted bool
	Chosen    int
	// Reveal shows the answer and explanation without a submission.
	Reveal bool
	Width  int
}

// NewMCQCard creates a card for q.
func NewMCQCard(q *mcq.MCQ, width int) MCQCard {
	return MCQCard{MCQ: q, Chosen: -1, Width: width}
}

// Update handles keyboard navigation and submission.
func (c MCQCard) Update(msg tea.Msg) (MCQCard, tea.Cmd) {
	if c.Submitted {
		return c, nil
	}

	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return c, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if c.Selected > 0 {
			c.Selected--
		}
	case "down", "j":
		if c.Selected < len(mcq.Letters)-1 {
			c.Selected++
		}
	case "a", "b", "c", "d":
		c.Selected = mcq.LetterIndex(strings.ToUpper(kmsg.String()))
		c.Submitted = true
		c.Chosen = c.Selected
	case "enter":
		c.Submitted = true
		c.Chosen = c.Selected
	}

	return c, nil
}

// IsCorrect reports whether the submitted option is the correct answer.
func (c MCQCard) IsCorrect() bool {
	return c.Submitted && c.Chosen == mcq.LetterIndex(c.MCQ.CorrectAnswer)
}

// View renders the card.
func (c MCQCard) View() string {
	if c.MCQ == nil {
		return theme.Hint.Render("no question yet")
	}

	var b strings.Builder
	for i, line := range c.MCQ.Question {
		style := theme.Body
		if i == 0 {
			style = style.Bold(true)
		}
		b.WriteString(style.Render(line))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	correct := mcq.LetterIndex(c.MCQ.CorrectAnswer)
	shown := c.Submitted || c.Reveal
	for i, letter := range mcq.Letters {
		prefix := "  "
		if i == c.Selected && !shown {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, letter, c.MCQ.Options[letter])

		switch {
		case shown && i == correct:
			line = theme.Correct.Render(line)
		case c.Submitted && i == c.Chosen:
			line = theme.Incorrect.Render(line)
		case shown:
			line = lipgloss.NewStyle().Foreground(theme.TextDim).Render(line)
		case i == c.Selected:
			line = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(line)
		default:
			line = theme.Body.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if shown {
		b.WriteByte('\n')
		b.WriteString(theme.Title.Render("Answer: " + c.MCQ.CorrectAnswer))
		b.WriteByte('\n')
		b.WriteString(theme.Hint.Render(c.MCQ.Explanation))
		if c.MCQ.Fallback {
			b.WriteByte('\n')
			b.WriteString(theme.Warning.Render("layout patched to include the correct combination"))
		}
	}

	style := theme.Card
	if c.Width > 0 {
		style = style.Width(c.Width)
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}
