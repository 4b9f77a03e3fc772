package statements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/mcqforge/internal/llm"
)

func testContext() TopicContext {
	return TopicContext{Category: "polity", Chapter: "Preamble", Node: "42nd Amendment"}
}

// batchJSON builds a response with the given truth flags.
func batchJSON(flags ...bool) json.RawMessage {
	type st struct {
		Text   string `json:"text"`
		IsTrue bool   `json:"isTrue"`
		Reason string `json:"reason"`
	}
	var out struct {
		Statements []st `json:"statements"`
	}
	for i, f := range flags {
		reason := fmt.Sprintf("Correct: fact %d holds.", i+1)
		if !f {
			reason = fmt.Sprintf("Incorrect: fact %d is misstated.", i+1)
		}
		out.Statements = append(out.Statements, st{
			Text:   fmt.Sprintf("Statement about the Preamble number %d.", i+1),
			IsTrue: f,
			Reason: reason,
		})
	}
	b, _ := json.Marshal(out)
	return b
}

func TestGenerate_Valid(t *testing.T) {
	for falseCount := 0; falseCount <= BatchSize; falseCount++ {
		t.Run(fmt.Sprintf("false=%d", falseCount), func(t *testing.T) {
			flags := make([]bool, BatchSize)
			for i := range flags {
				flags[i] = i >= falseCount
			}
			mock := llm.NewMockProvider(llm.MockResponse{Content: batchJSON(flags...)})
			gen := New(mock, DefaultConfig(), nil)

			batch, err := gen.Generate(context.Background(), testContext(), falseCount)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(batch.Statements) != BatchSize {
				t.Fatalf("expected %d statements, got %d", BatchSize, len(batch.Statements))
			}
			if got := BatchSize - batch.TrueCount(); got != falseCount {
				t.Errorf("false count = %d, want %d", got, falseCount)
			}
			for i, s := range batch.Statements {
				if s.Text == "" || s.Reason == "" {
					t.Errorf("statement %d has empty field: %+v", i, s)
				}
			}
			if batch.Context != testContext() {
				t.Errorf("context not carried: %+v", batch.Context)
			}
			if mock.CallCount() != 1 {
				t.Errorf("expected 1 call, got %d", mock.CallCount())
			}
		})
	}
}

func TestGenerate_PromptPinsCounts(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: batchJSON(true, true, false, true)})
	_, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), testContext(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := mock.Calls[0].Messages[0].Content
	for _, want := range []string{"Node: 42nd Amendment", "Write exactly 4 statements", "Exactly 1 must be false", "exactly 3 must be true"} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q:\n%s", want, msg)
		}
	}
	if mock.Calls[0].Schema != BatchSchema {
		t.Error("expected batch schema")
	}
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(true, true, true)},
		llm.MockResponse{Content: json.RawMessage("I am not JSON")},
		llm.MockResponse{Content: batchJSON(true, false, true, false)},
	)
	batch, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), testContext(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.TrueCount() != 2 {
		t.Errorf("TrueCount = %d, want 2", batch.TrueCount())
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
	for i := 1; i < 3; i++ {
		if mock.Calls[i].Messages[0].Content != mock.Calls[0].Messages[0].Content {
			t.Error("retry must reuse the same prompt")
		}
	}
}

func TestGenerate_Exhausted(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(true, true, true, true)},
		llm.MockResponse{Content: batchJSON(true, true, true, true)},
		llm.MockResponse{Content: batchJSON(true, true, true, true)},
		llm.MockResponse{Content: batchJSON(false, true, true, true)},
	)
	batch, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), testContext(), 1)
	if batch != nil {
		t.Fatal("no partial batch may be returned")
	}
	var exhausted *GenerationExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *GenerationExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	var violation *ContractViolationError
	if !errors.As(err, &violation) {
		t.Fatal("expected wrapped *ContractViolationError")
	}
	if violation.Attempt != 3 {
		t.Errorf("last violation attempt = %d, want 3", violation.Attempt)
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected exactly 3 calls, got %d", mock.CallCount())
	}
}

func TestGenerate_InvalidResponseCountsAsViolation(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrInvalidResponse{Err: errors.New("schema validation failed")}},
		llm.MockResponse{Content: batchJSON(false, false, false, false)},
	)
	batch, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), testContext(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.TrueCount() != 0 {
		t.Errorf("TrueCount = %d, want 0", batch.TrueCount())
	}
}

func TestGenerate_ProviderErrorPropagates(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("connection refused")}},
		llm.MockResponse{Content: batchJSON(true, true, true, true)},
	)
	_, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), testContext(), 0)
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("provider errors must not be retried here, got %d calls", mock.CallCount())
	}
}

func TestGenerate_RejectsFalseCountRange(t *testing.T) {
	for _, fc := range []int{-1, 5} {
		mock := llm.NewMockProvider()
		_, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), testContext(), fc)
		if !errors.Is(err, ErrFalseCount) {
			t.Errorf("falseCount %d: expected ErrFalseCount, got %v", fc, err)
		}
		if mock.CallCount() != 0 {
			t.Errorf("falseCount %d: oracle must not be called", fc)
		}
	}
}

func TestCheckContract_ListsAllViolations(t *testing.T) {
	empty := ""
	text := "The Preamble is justiciable."
	yes := true
	out := batchOutput{Statements: []statementOutput{
		{Text: &empty, IsTrue: &yes, Reason: &empty},
		{Text: &text, Reason: &text},
		{Text: &text, IsTrue: &yes, Reason: &text},
	}}
	stmts, violations := checkContract(out, 1)
	if stmts != nil {
		t.Fatal("statements must be nil when violations exist")
	}
	want := []string{
		"expected 4 statements, got 3",
		"statement 1 has empty text",
		"statement 1 has empty reason",
		"statement 2 has no isTrue flag",
		"expected 1 false statements, got 0",
	}
	if strings.Join(violations, "|") != strings.Join(want, "|") {
		t.Errorf("violations = %v, want %v", violations, want)
	}
}

func TestGenerate_FencedResponse(t *testing.T) {
	raw := "```json\n" + string(batchJSON(true, false, true, true)) + "\n```"
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(raw)})
	batch, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), testContext(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !batch.Statements[0].IsTrue || batch.Statements[1].IsTrue {
		t.Errorf("order not preserved: %+v", batch.Statements)
	}
}

func TestGenerate_RetryChainCallsOncePerAttempt(t *testing.T) {
	mock := llm.NewMockProvider()
	for range 10 {
		mock.AddResponse(llm.MockResponse{Err: &llm.ErrInvalidResponse{Err: errors.New("schema validation failed")}})
	}
	retried := llm.WithRetry(mock, llm.RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, Multiplier: 2}, nil)

	_, err := New(retried, DefaultConfig(), nil).Generate(context.Background(), testContext(), 2)
	var exhausted *GenerationExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *GenerationExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if mock.CallCount() != 3 {
		t.Errorf("oracle calls = %d, want 3", mock.CallCount())
	}
}
