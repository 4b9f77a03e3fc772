package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/statements"
)

func sampleMCQ(t *testing.T) *mcq.MCQ {
	t.Helper()
	tr := mcq.NewTransformer(nil, rand.New(rand.NewPCG(3, 4)), nil)
	q, err := tr.TransformWithCount(&statements.Batch{Statements: []statements.Statement{
		{Text: "The Preamble was amended by the 42nd Amendment.", IsTrue: true, Reason: "Correct: 1976."},
		{Text: "The Preamble is enforceable in courts.", IsTrue: false, Reason: "Incorrect: it is non-justiciable."},
		{Text: "The Preamble declares India a republic.", IsTrue: true, Reason: "Correct: head of state is elected."},
		{Text: "The Preamble was adopted in 1947.", IsTrue: false, Reason: "Incorrect: 26 November 1949."},
	}}, 3)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	return q
}

func verdictJSON(verdict, fault string, options []string, correct string) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"verdict": verdict,
		"fault":   fault,
		"corrected": map[string]any{
			"question":       []string{"Consider the following statements:", "1. Fixed.", "Which of the statements given above is/are correct?"},
			"options":        options,
			"correct_answer": correct,
			"explanation":    "Statement 1 is correct: fixed.",
		},
	})
	return b
}

var fourOptions = []string{"1 only", "2 only", "Both 1 and 2", "None of the above"}

func TestEvaluator_Accept(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: verdictJSON("accept", "", fourOptions, "A")})
	q := sampleMCQ(t)

	v, err := NewEvaluator(mock, DefaultConfig(), nil).Evaluate(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != ActionAccept || v.Corrected != nil {
		t.Errorf("unexpected verdict: %+v", v)
	}
	msg := mock.Calls[0].Messages[0].Content
	if !strings.Contains(msg, "Marked correct answer: "+q.CorrectAnswer) {
		t.Errorf("prompt missing answer:\n%s", msg)
	}
	if !strings.Contains(msg, q.Question[1]) {
		t.Errorf("prompt missing statement:\n%s", msg)
	}
}

func TestEvaluator_Repair(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: verdictJSON("repair", "wrong answer", fourOptions, "C")})
	q := sampleMCQ(t)

	v, err := NewEvaluator(mock, DefaultConfig(), nil).Evaluate(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Corrected == nil {
		t.Fatal("expected corrected question")
	}
	if v.Corrected.Options["C"] != "Both 1 and 2" || v.Corrected.Phrase != "Both 1 and 2" {
		t.Errorf("unexpected correction: %+v", v.Corrected)
	}
	if v.Corrected.Template != "" || v.Corrected.Statements != nil {
		t.Errorf("stale provenance on correction: %q %v", v.Corrected.Template, v.Corrected.Statements)
	}
	if q.Template == "" || len(q.Statements) == 0 {
		t.Error("original provenance cleared")
	}
	if q.Question[1] == "1. Fixed." {
		t.Error("original modified")
	}
}

func TestEvaluator_UnknownVerdict(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"verdict":"maybe","fault":"","corrected":null}`)})
	_, err := NewEvaluator(mock, DefaultConfig(), nil).Evaluate(context.Background(), sampleMCQ(t))
	var invalid *llm.ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid response, got %v", err)
	}
}

// scriptedReviewer returns verdicts in order.
type scriptedReviewer struct {
	verdicts []*Verdict
	seen     []*mcq.MCQ
}

func (r *scriptedReviewer) Evaluate(_ context.Context, q *mcq.MCQ) (*Verdict, error) {
	r.seen = append(r.seen, q)
	if len(r.verdicts) == 0 {
		return nil, errors.New("no more verdicts")
	}
	v := r.verdicts[0]
	r.verdicts = r.verdicts[1:]
	return v, nil
}

func corrected(q *mcq.MCQ, answer string) *mcq.MCQ {
	c := q.Clone()
	c.CorrectAnswer = answer
	return c
}

func TestLoop_Stages(t *testing.T) {
	base := sampleMCQ(t)
	broken := base.Clone()
	delete(broken.Options, "D")

	tests := []struct {
		name      string
		verdicts  []*Verdict
		stage     Stage
		revisions int
		answer    string
	}{
		{
			name:     "accepted as is",
			verdicts: []*Verdict{{Action: ActionAccept}},
			stage:    StageApproved,
			answer:   base.CorrectAnswer,
		},
		{
			name:     "rejected outright",
			verdicts: []*Verdict{{Action: ActionReject, Fault: "statement 2 is ambiguous"}},
			stage:    StageRejected,
			answer:   base.CorrectAnswer,
		},
		{
			name: "repaired then accepted",
			verdicts: []*Verdict{
				{Action: ActionRepair, Fault: "wrong letter", Corrected: corrected(base, "D")},
				{Action: ActionAccept},
			},
			stage:     StageRepaired,
			revisions: 1,
			answer:    "D",
		},
		{
			name: "malformed correction is not applied",
			verdicts: []*Verdict{
				{Action: ActionRepair, Fault: "x", Corrected: broken},
				{Action: ActionAccept},
			},
			stage:     StageApproved,
			revisions: 1,
			answer:    base.CorrectAnswer,
		},
		{
			name: "revisions exhausted",
			verdicts: []*Verdict{
				{Action: ActionRepair, Fault: "1", Corrected: corrected(base, "A")},
				{Action: ActionRepair, Fault: "2", Corrected: corrected(base, "B")},
				{Action: ActionRepair, Fault: "3", Corrected: corrected(base, "C")},
				{Action: ActionRepair, Fault: "4", Corrected: corrected(base, "D")},
			},
			stage:     StageRejected,
			revisions: 3,
			answer:    "C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &scriptedReviewer{verdicts: tt.verdicts}
			out, err := NewLoop(r, DefaultMaxRevisions, nil).Run(context.Background(), base)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Stage != tt.stage {
				t.Errorf("stage = %s, want %s", out.Stage, tt.stage)
			}
			if out.Revisions != tt.revisions {
				t.Errorf("revisions = %d, want %d", out.Revisions, tt.revisions)
			}
			if out.MCQ.CorrectAnswer != tt.answer {
				t.Errorf("answer = %s, want %s", out.MCQ.CorrectAnswer, tt.answer)
			}
			if len(r.verdicts) != 0 {
				t.Errorf("%d verdicts unused", len(r.verdicts))
			}
		})
	}
}

func TestLoop_ReviewerErrorPropagates(t *testing.T) {
	r := &scriptedReviewer{}
	_, err := NewLoop(r, 0, nil).Run(context.Background(), sampleMCQ(t))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLoop_WithEvaluator(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: verdictJSON("repair", "answer should be C", fourOptions, "C")},
		llm.MockResponse{Content: verdictJSON("accept", "", fourOptions, "C")},
	)
	loop := NewLoop(NewEvaluator(mock, DefaultConfig(), nil), DefaultMaxRevisions, nil)
	out, err := loop.Run(context.Background(), sampleMCQ(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageRepaired || out.MCQ.CorrectAnswer != "C" {
		t.Errorf("unexpected outcome: stage=%s answer=%s", out.Stage, out.MCQ.CorrectAnswer)
	}
	if !strings.Contains(mock.Calls[1].Messages[0].Content, "1. Fixed.") {
		t.Error("second review must see the corrected question")
	}
}

func TestStage_Valid(t *testing.T) {
	for _, s := range []Stage{StageGenerated, StageApproved, StageRepaired, StageRejected} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Stage("published").Valid() {
		t.Error("unknown stage reported valid")
	}
}
