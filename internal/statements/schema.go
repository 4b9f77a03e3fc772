package statements

import "github.com/abhisek/mcqforge/internal/llm"

// BatchSchema defines the JSON shape of a statement batch response.
var BatchSchema = &llm.Schema{
	Name:        "statement-batch",
	Description: "Four factual statements about a study topic, each marked true or false with a reason",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"statements": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{
							"type":        "string",
							"description": "A single self-contained factual assertion",
						},
						"isTrue": map[string]any{
							"type":        "boolean",
							"description": "Whether the assertion is factually correct",
						},
						"reason": map[string]any{
							"type":        "string",
							"description": "Starts with 'Correct:' or 'Incorrect:' followed by the justification",
						},
					},
					"required":             []any{"text", "isTrue", "reason"},
					"additionalProperties": false,
				},
				"description": "Exactly 4 statements",
			},
		},
		"required":             []any{"statements"},
		"additionalProperties": false,
	},
}
