package evaluation

import "github.com/abhisek/mcqforge/internal/llm"

// VerdictSchema defines the JSON shape of a review response.
var VerdictSchema = &llm.Schema{
	Name:        "mcq-review",
	Description: "Review of a statement-based exam question with an optional corrected version",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"verdict": map[string]any{
				"type":        "string",
				"enum":        []any{"accept", "repair", "reject"},
				"description": "accept if the question is correct as is, repair if it can be fixed, reject if it cannot",
			},
			"fault": map[string]any{
				"type":        "string",
				"description": "What is wrong with the question. Empty when accepting.",
			},
			"corrected": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Question lines: stem, numbered statements, closing line",
					},
					"options": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Exactly 4 options in A, B, C, D order",
					},
					"correct_answer": map[string]any{
						"type":        "string",
						"enum":        []any{"A", "B", "C", "D"},
						"description": "Letter of the correct option",
					},
					"explanation": map[string]any{
						"type":        "string",
						"description": "One line per statement explaining why it is correct or incorrect",
					},
				},
				"required":             []any{"question", "options", "correct_answer", "explanation"},
				"additionalProperties": false,
				"description":          "The repaired question. Repeat the original when not repairing.",
			},
		},
		"required":             []any{"verdict", "fault", "corrected"},
		"additionalProperties": false,
	},
}
