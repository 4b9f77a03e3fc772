package statements

import (
	"fmt"
	"strings"
)

// statementOutput is one raw statement before validation. Pointers detect
// missing fields.
type statementOutput struct {
	Text   *string `json:"text"`
	IsTrue *bool   `json:"isTrue"`
	Reason *string `json:"reason"`
}

// batchOutput is the raw oracle response.
type batchOutput struct {
	Statements []statementOutput `json:"statements"`
}

// checkContract returns the validated statements, or every violation of the
// batch contract. It never returns both.
func checkContract(out batchOutput, falseCount int) ([]Statement, []string) {
	var violations []string

	if n := len(out.Statements); n != BatchSize {
		violations = append(violations, fmt.Sprintf("expected %d statements, got %d", BatchSize, n))
	}

	stmts := make([]Statement, 0, len(out.Statements))
	falses := 0
	for i, s := range out.Statements {
		n := i + 1
		if s.Text == nil || strings.TrimSpace(*s.Text) == "" {
			violations = append(violations, fmt.Sprintf("statement %d has empty text", n))
		}
		if s.Reason == nil || strings.TrimSpace(*s.Reason) == "" {
			violations = append(violations, fmt.Sprintf("statement %d has empty reason", n))
		}
		if s.IsTrue == nil {
			violations = append(violations, fmt.Sprintf("statement %d has no isTrue flag", n))
			continue
		}
		if !*s.IsTrue {
			falses++
		}
		if len(violations) == 0 {
			stmts = append(stmts, Statement{
				Text:   strings.TrimSpace(*s.Text),
				IsTrue: *s.IsTrue,
				Reason: strings.TrimSpace(*s.Reason),
			})
		}
	}

	if falses != falseCount {
		violations = append(violations, fmt.Sprintf("expected %d false statements, got %d", falseCount, falses))
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return stmts, nil
}
