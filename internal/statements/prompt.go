package statements

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a UPSC Civil Services question setter writing statement-based questions.

Rules:
- Write exactly 4 statements about the given node of the chapter.
- Each statement is one self-contained factual assertion, at most two sentences.
- A false statement must be plausible: change one fact (a date, an article, a body, a number), do not negate the sentence.
- Never mark a statement true unless it is factually correct.
- Every statement carries a reason. Start it with "Correct:" for a true statement or "Incorrect:" for a false one, then justify it in one or two sentences.
- Exactly the requested number of statements must be false. Count before answering.`

func buildUserMessage(tc TopicContext, falseCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", tc.Category)
	fmt.Fprintf(&b, "Chapter: %s\n", tc.Chapter)
	fmt.Fprintf(&b, "Node: %s\n", tc.Node)
	fmt.Fprintf(&b, "\nWrite exactly %d statements.\n", BatchSize)
	fmt.Fprintf(&b, "Exactly %d must be false (isTrue=false) and exactly %d must be true (isTrue=true).\n",
		falseCount, BatchSize-falseCount)
	return b.String()
}
