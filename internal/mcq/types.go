// Package mcq turns statement batches into UPSC-style combination
// questions using a catalog of option layouts.
package mcq

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/mcqforge/internal/statements"
)

// Letters are the option labels in display order.
var Letters = []string{"A", "B", "C", "D"}

// LetterIndex returns the position of letter in Letters, or -1.
func LetterIndex(letter string) int {
	return slices.Index(Letters, letter)
}

const (
	stemLine    = "Consider the following statements:"
	closingLine = "Which of the statements given above is/are correct?"
)

// MCQ is a rendered question. It is not modified after Transform returns;
// the evaluation loop works on clones.
type MCQ struct {
	// Question holds the stem, one numbered line per statement and the
	// closing line.
	Question      []string          `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation"`

	Phrase     string                 `json:"phrase,omitempty"`
	Template   string                 `json:"template,omitempty"`
	Statements []statements.Statement `json:"statements,omitempty"`
	// Fallback marks a question whose layout had to be patched because no
	// registered layout offered the correct phrase.
	Fallback bool `json:"fallback,omitempty"`
}

// Clone returns a deep copy.
func (m *MCQ) Clone() *MCQ {
	c := *m
	c.Question = slices.Clone(m.Question)
	c.Statements = slices.Clone(m.Statements)
	c.Options = make(map[string]string, len(m.Options))
	for k, v := range m.Options {
		c.Options[k] = v
	}
	return &c
}

// Validate checks the question's shape: a non-empty stem, exactly the four
// options A-D, and a correct answer among them.
func (m *MCQ) Validate() error {
	if len(m.Question) == 0 {
		return fmt.Errorf("question is empty")
	}
	if len(m.Options) != len(Letters) {
		return fmt.Errorf("expected %d options, got %d", len(Letters), len(m.Options))
	}
	for _, l := range Letters {
		if strings.TrimSpace(m.Options[l]) == "" {
			return fmt.Errorf("option %s is missing", l)
		}
	}
	if LetterIndex(m.CorrectAnswer) < 0 {
		return fmt.Errorf("correct answer %q is not one of A-D", m.CorrectAnswer)
	}
	return nil
}

// Text renders the question and options as plain text.
func (m *MCQ) Text() string {
	var b strings.Builder
	for _, line := range m.Question {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, l := range Letters {
		fmt.Fprintf(&b, "(%s) %s\n", l, m.Options[l])
	}
	return b.String()
}

// InvalidBatchError is returned when a batch does not hold exactly four
// statements.
type InvalidBatchError struct {
	Count int
}

func (e *InvalidBatchError) Error() string {
	return fmt.Sprintf("invalid statement batch: expected %d statements, got %d", statements.BatchSize, e.Count)
}
