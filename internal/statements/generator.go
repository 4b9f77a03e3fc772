package statements

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/logger"
)

// Config controls the behavior of the Generator.
type Config struct {
	// MaxAttempts bounds how often the same prompt is sent when the
	// response violates the batch contract.
	MaxAttempts int

	// MaxTokens is the token budget for the oracle response.
	MaxTokens int

	// Temperature controls oracle output randomness (0.0-1.0).
	Temperature float64
}

// DefaultConfig returns the recommended generator settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		MaxTokens:   1024,
		Temperature: 0.7,
	}
}

// Generator produces statement batches with the oracle.
type Generator struct {
	provider llm.Provider
	config   Config
	log      *logger.Logger
}

// New creates a Generator with the given provider and config.
func New(provider llm.Provider, cfg Config, log *logger.Logger) *Generator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Generator{provider: provider, config: cfg, log: logger.OrNop(log)}
}

// Generate returns a batch of exactly BatchSize statements about tc with
// exactly falseCount false ones. A response that breaks the contract is
// discarded and the same prompt is retried; once MaxAttempts are spent the
// result is a *GenerationExhaustedError. Provider failures other than an
// invalid response are returned immediately. A partial batch is never
// returned.
func (g *Generator) Generate(ctx context.Context, tc TopicContext, falseCount int) (*Batch, error) {
	if falseCount < 0 || falseCount > BatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrFalseCount, falseCount)
	}

	ctx = llm.WithContractRetry(llm.WithPurpose(ctx, "statements"))

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(tc, falseCount)},
		},
		Schema:      BatchSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	var last *ContractViolationError
	for attempt := 1; attempt <= g.config.MaxAttempts; attempt++ {
		stmts, violation, err := g.attempt(ctx, req, falseCount, attempt)
		if err != nil {
			return nil, err
		}
		if violation == nil {
			return &Batch{Context: tc, FalseCount: falseCount, Statements: stmts}, nil
		}

		last = violation
		g.log.Warn("statement batch rejected",
			"node", tc.Node,
			"attempt", attempt,
			"violations", violation.Violations,
		)
	}

	return nil, &GenerationExhaustedError{Attempts: g.config.MaxAttempts, Last: last}
}

// attempt performs one oracle exchange. It yields either statements, a
// contract violation, or a fatal error.
func (g *Generator) attempt(ctx context.Context, req llm.Request, falseCount, n int) ([]Statement, *ContractViolationError, error) {
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		var invalid *llm.ErrInvalidResponse
		if errors.As(err, &invalid) {
			return nil, &ContractViolationError{Attempt: n, Violations: []string{invalid.Error()}}, nil
		}
		return nil, nil, fmt.Errorf("statement generation failed: %w", err)
	}

	var out batchOutput
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return nil, &ContractViolationError{Attempt: n, Violations: []string{err.Error()}}, nil
	}

	stmts, violations := checkContract(out, falseCount)
	if len(violations) > 0 {
		return nil, &ContractViolationError{Attempt: n, Violations: violations}, nil
	}
	return stmts, nil, nil
}
