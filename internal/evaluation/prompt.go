package evaluation

import (
	"fmt"
	"strings"

	"github.com/abhisek/mcqforge/internal/mcq"
)

const systemPrompt = `You are a senior UPSC Civil Services examiner reviewing statement-based questions before they are published.

Check, in order:
1. Every statement is factually accurate or inaccurate exactly as the explanation claims.
2. The marked correct option names exactly the statements that are correct.
3. The options are distinct and the question is unambiguous.

Decide:
- "accept" when all checks pass.
- "repair" when a fix exists. Return the full corrected question, keeping its structure and the four options.
- "reject" when the question cannot be salvaged.`

func buildUserMessage(q *mcq.MCQ) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(q.Text())
	fmt.Fprintf(&b, "\nMarked correct answer: %s\n", q.CorrectAnswer)
	b.WriteString("\nExplanation:\n")
	b.WriteString(q.Explanation)
	b.WriteString("\n")
	return b.String()
}
