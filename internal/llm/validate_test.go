package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

var reviewFixture = &Schema{
	Name: "review-fixture",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"verdict": map[string]any{"type": "string", "enum": []any{"accept", "repair", "reject"}},
			"fault":   map[string]any{"type": "string"},
		},
		"required":             []any{"verdict", "fault"},
		"additionalProperties": false,
	},
}

var statementsFixture = &Schema{
	Name: "statements-fixture",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"statements": map[string]any{
				"type":     "array",
				"minItems": 2,
				"maxItems": 4,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":   map[string]any{"type": "string"},
						"isTrue": map[string]any{"type": "boolean"},
					},
					"required": []any{"text", "isTrue"},
				},
			},
		},
		"required": []any{"statements"},
	},
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		raw     string
		wantErr bool
	}{
		{"accept verdict", reviewFixture, `{"verdict":"accept","fault":""}`, false},
		{"unknown verdict", reviewFixture, `{"verdict":"maybe","fault":""}`, true},
		{"missing fault", reviewFixture, `{"verdict":"reject"}`, true},
		{"extra property", reviewFixture, `{"verdict":"accept","fault":"","score":3}`, true},
		{"two statements", statementsFixture, `{"statements":[{"text":"a","isTrue":true},{"text":"b","isTrue":false}]}`, false},
		{"one statement", statementsFixture, `{"statements":[{"text":"a","isTrue":true}]}`, true},
		{"truth as string", statementsFixture, `{"statements":[{"text":"a","isTrue":"yes"},{"text":"b","isTrue":false}]}`, true},
		{"malformed", reviewFixture, `{verdict: accept}`, true},
		{"empty", reviewFixture, ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateResponse(tt.schema, json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			var invalid *ErrInvalidResponse
			if err != nil && !errors.As(err, &invalid) {
				t.Fatalf("expected ErrInvalidResponse, got %T", err)
			}
		})
	}
}

func TestValidateResponse_StripsFences(t *testing.T) {
	raw := json.RawMessage("Here is the review:\n```json\n{\"verdict\":\"repair\",\"fault\":\"option C repeats B\"}\n```")
	got, err := validateResponse(reviewFixture, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"verdict":"repair","fault":"option C repeats B"}`
	if string(got) != want {
		t.Fatalf("content = %s, want %s", got, want)
	}
}

func TestValidateResponse_NilSchemaPassesThrough(t *testing.T) {
	raw := json.RawMessage(`not even json`)
	got, err := validateResponse(nil, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatalf("content changed: %s", got)
	}
}

func TestCompileSchema_Cached(t *testing.T) {
	a, err := compileSchema(reviewFixture)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	b, err := compileSchema(reviewFixture)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if a != b {
		t.Fatal("expected the cached schema on the second call")
	}
}

func TestCompileSchema_BadDefinition(t *testing.T) {
	bad := &Schema{Name: "bad", Definition: map[string]any{"type": 12}}
	if _, err := validateResponse(bad, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected an error for an uncompilable schema")
	}
}

func TestFinish_MaxTokens(t *testing.T) {
	_, err := finish(Request{MaxTokens: 64, Schema: reviewFixture}, &Response{
		Content:    json.RawMessage(`{"verdict":"acc`),
		StopReason: StopMaxTokens,
	})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T (%v)", err, err)
	}
	if maxTok.Limit != 64 {
		t.Fatalf("limit = %d, want 64", maxTok.Limit)
	}
}
