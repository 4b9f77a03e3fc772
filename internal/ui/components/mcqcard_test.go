package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/mcqforge/internal/mcq"
)

func testMCQ() *mcq.MCQ {
	return &mcq.MCQ{
		Question:      []string{"Consider the following statements:", "1. One", "2. Two", "Which of the statements given above is/are correct?"},
		Options:       map[string]string{"A": "1 only", "B": "2 only", "C": "Both 1 and 2", "D": "Neither 1 nor 2"},
		CorrectAnswer: "B",
		Explanation:   "Statement 2 alone is correct.",
	}
}

func TestMCQCard_Navigation(t *testing.T) {
	c := NewMCQCard(testMCQ(), 0)
	c, _ = c.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})
	c, _ = c.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})
	c, _ = c.Update(tea.KeyPressMsg{Code: 'k', Text: "k"})
	if c.Selected != 1 {
		t.Fatalf("Selected = %d, want 1", c.Selected)
	}
	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if !c.Submitted || !c.IsCorrect() {
		t.Errorf("expected a correct submission, got %+v", c)
	}

	// Input after submission is ignored.
	c, _ = c.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})
	if c.Selected != 1 {
		t.Errorf("selection moved after submit")
	}
}

func TestMCQCard_LetterKeySubmits(t *testing.T) {
	c := NewMCQCard(testMCQ(), 0)
	c, _ = c.Update(tea.KeyPressMsg{Code: 'd', Text: "d"})
	if !c.Submitted || c.Chosen != 3 {
		t.Fatalf("expected D submitted, got %+v", c)
	}
	if c.IsCorrect() {
		t.Error("D should be incorrect")
	}
}

func TestMCQCard_View(t *testing.T) {
	c := NewMCQCard(testMCQ(), 0)
	view := c.View()
	for _, want := range []string{"Consider the following statements:", "A)  1 only", "D)  Neither 1 nor 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "Answer:") {
		t.Error("answer shown before submission")
	}

	c.Reveal = true
	if view := c.View(); !strings.Contains(view, "Answer: B") {
		t.Errorf("revealed view missing answer:\n%s", view)
	}
}

func TestMCQCard_NilQuestion(t *testing.T) {
	if NewMCQCard(nil, 0).View() == "" {
		t.Error("expected placeholder for nil question")
	}
}

func TestProgressBar_Clamps(t *testing.T) {
	if v := NewProgressBar("", 5, 0, 20).View(); !strings.Contains(v, "0%") {
		t.Errorf("zero total should render 0%%: %q", v)
	}
	if v := NewProgressBar("", 9, 3, 20).View(); !strings.Contains(v, "100%") {
		t.Errorf("unexpected render %q", v)
	}
}
