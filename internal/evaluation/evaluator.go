package evaluation

import (
	"context"
	"fmt"

	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/logger"
	"github.com/abhisek/mcqforge/internal/mcq"
)

// Reviewer judges a question.
type Reviewer interface {
	Evaluate(ctx context.Context, q *mcq.MCQ) (*Verdict, error)
}

// Config controls the Evaluator.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the recommended review settings.
func DefaultConfig() Config {
	return Config{MaxTokens: 1536, Temperature: 0}
}

// Evaluator reviews questions with the oracle.
type Evaluator struct {
	provider llm.Provider
	config   Config
	log      *logger.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(provider llm.Provider, cfg Config, log *logger.Logger) *Evaluator {
	return &Evaluator{provider: provider, config: cfg, log: logger.OrNop(log)}
}

// verdictOutput is the raw review response.
type verdictOutput struct {
	Verdict   string `json:"verdict"`
	Fault     string `json:"fault"`
	Corrected *struct {
		Question      []string `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
		Explanation   string   `json:"explanation"`
	} `json:"corrected"`
}

// Evaluate asks the oracle to review q. A repair verdict without a usable
// corrected question is returned with Corrected nil.
func (e *Evaluator) Evaluate(ctx context.Context, q *mcq.MCQ) (*Verdict, error) {
	ctx = llm.WithPurpose(ctx, "evaluate")

	resp, err := e.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(q)}},
		Schema:      VerdictSchema,
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("review failed: %w", err)
	}

	var out verdictOutput
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("failed to parse review: %w", err)
	}

	v := &Verdict{Action: Action(out.Verdict), Fault: out.Fault}
	switch v.Action {
	case ActionAccept, ActionReject:
	case ActionRepair:
		if out.Corrected != nil && len(out.Corrected.Options) == len(mcq.Letters) {
			corrected := q.Clone()
			corrected.Question = out.Corrected.Question
			corrected.CorrectAnswer = out.Corrected.CorrectAnswer
			corrected.Explanation = out.Corrected.Explanation
			corrected.Options = make(map[string]string, len(mcq.Letters))
			for i, l := range mcq.Letters {
				corrected.Options[l] = out.Corrected.Options[i]
			}
			// The reviewer rewrote the stem, so the drawn statements and
			// layout no longer describe it.
			corrected.Phrase = corrected.Options[corrected.CorrectAnswer]
			corrected.Template = ""
			corrected.Statements = nil
			corrected.Fallback = false
			v.Corrected = corrected
		}
	default:
		return nil, &llm.ErrInvalidResponse{
			Content: resp.Content,
			Err:     fmt.Errorf("unknown verdict %q", out.Verdict),
		}
	}
	return v, nil
}
