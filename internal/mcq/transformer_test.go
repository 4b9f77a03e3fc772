package mcq

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/mcqforge/internal/statements"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(42, 7))
}

func makeBatch(flags ...bool) *statements.Batch {
	b := &statements.Batch{Context: statements.TopicContext{Category: "polity", Chapter: "Preamble", Node: "Objectives"}}
	for i, f := range flags {
		reason := fmt.Sprintf("Correct: reason %d.", i)
		if !f {
			reason = fmt.Sprintf("Incorrect: reason %d.", i)
		}
		b.Statements = append(b.Statements, statements.Statement{
			Text:   fmt.Sprintf("Statement text %d", i),
			IsTrue: f,
			Reason: reason,
		})
		if !f {
			b.FalseCount++
		}
	}
	return b
}

// checkConsistent asserts the structural properties every question must have.
func checkConsistent(t *testing.T, q *MCQ) {
	t.Helper()
	if err := q.Validate(); err != nil {
		t.Fatalf("invalid MCQ: %v", err)
	}
	k := len(q.Statements)
	if k < 2 || k > 4 {
		t.Fatalf("displayed %d statements", k)
	}
	if len(q.Question) != k+2 {
		t.Fatalf("question has %d lines, want %d", len(q.Question), k+2)
	}
	if q.Question[0] != "Consider the following statements:" {
		t.Errorf("stem = %q", q.Question[0])
	}
	if q.Question[k+1] != "Which of the statements given above is/are correct?" {
		t.Errorf("closing = %q", q.Question[k+1])
	}
	var trueIdx []int
	for i, s := range q.Statements {
		if q.Question[i+1] != fmt.Sprintf("%d. %s", i+1, s.Text) {
			t.Errorf("line %d = %q", i+1, q.Question[i+1])
		}
		if s.IsTrue {
			trueIdx = append(trueIdx, i+1)
		}
	}
	if want := Phrase(k, trueIdx); q.Phrase != want {
		t.Errorf("phrase = %q, want %q", q.Phrase, want)
	}
	if q.Options[q.CorrectAnswer] != q.Phrase {
		t.Errorf("option %s = %q, want phrase %q", q.CorrectAnswer, q.Options[q.CorrectAnswer], q.Phrase)
	}
	if q.Fallback {
		t.Error("default catalog must never need the fallback")
	}
}

func TestTransform_StructuralInvariants(t *testing.T) {
	tr := NewTransformer(nil, seeded(), nil)
	batches := []*statements.Batch{
		makeBatch(true, true, true, true),
		makeBatch(true, false, true, false),
		makeBatch(false, false, false, true),
		makeBatch(false, false, false, false),
		makeBatch(true, true, true, false),
	}
	counts := map[int]int{}
	for i := range 600 {
		q, err := tr.Transform(batches[i%len(batches)])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkConsistent(t, q)
		counts[len(q.Statements)]++
	}
	for _, k := range Counts {
		if counts[k] == 0 {
			t.Errorf("k=%d never drawn", k)
		}
	}
}

func TestTransform_OneTrueRoundTrip(t *testing.T) {
	tr := NewTransformer(nil, seeded(), nil)
	for range 50 {
		q, err := tr.TransformWithCount(makeBatch(false, true, false, false), 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p := slices.IndexFunc(q.Statements, func(s statements.Statement) bool { return s.IsTrue }) + 1
		want := fmt.Sprintf("%d only", p)
		if q.Phrase != want {
			t.Fatalf("phrase = %q, want %q", q.Phrase, want)
		}
		if q.Options[q.CorrectAnswer] != want {
			t.Fatalf("correct option %s = %q", q.CorrectAnswer, q.Options[q.CorrectAnswer])
		}
	}
}

func TestTransform_Boundaries(t *testing.T) {
	tr := NewTransformer(nil, seeded(), nil)

	q, err := tr.TransformWithCount(makeBatch(true, true, true, true), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Phrase != "1, 2, 3 and 4" {
		t.Errorf("all true phrase = %q", q.Phrase)
	}

	for _, k := range Counts {
		q, err := tr.TransformWithCount(makeBatch(false, false, false, false), k)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Phrase != "None of the above" {
			t.Errorf("k=%d all false phrase = %q", k, q.Phrase)
		}
		checkConsistent(t, q)
	}
}

func TestTransform_TwoTrueScenarios(t *testing.T) {
	tr := NewTransformer(nil, seeded(), nil)
	batch := makeBatch(true, true, false, false)

	var sawPair, sawTriple bool
	for range 500 {
		q, _ := tr.TransformWithCount(batch, 2)
		if q.Statements[0].IsTrue && q.Statements[1].IsTrue {
			sawPair = true
			if q.Phrase != "Both 1 and 2" {
				t.Fatalf("phrase = %q, want Both 1 and 2", q.Phrase)
			}
		}

		q, _ = tr.TransformWithCount(batch, 3)
		if q.Statements[0].IsTrue && q.Statements[1].IsTrue && !q.Statements[2].IsTrue {
			sawTriple = true
			if q.Phrase != "1 and 2 only" {
				t.Fatalf("phrase = %q, want 1 and 2 only", q.Phrase)
			}
		}
	}
	if !sawPair || !sawTriple {
		t.Fatalf("scenarios not reached: pair=%v triple=%v", sawPair, sawTriple)
	}
}

func TestTransform_Explanation(t *testing.T) {
	tr := NewTransformer(nil, seeded(), nil)
	q, err := tr.TransformWithCount(makeBatch(true, false, true, false), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(q.Explanation, "\n")
	if len(lines) != 4 {
		t.Fatalf("explanation has %d lines", len(lines))
	}
	for i, s := range q.Statements {
		verdict := "incorrect"
		if s.IsTrue {
			verdict = "correct"
		}
		prefix := fmt.Sprintf("Statement %d is %s: reason ", i+1, verdict)
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

func TestExplain_StripsOnlyVerdictPrefix(t *testing.T) {
	got := explain([]statements.Statement{
		{IsTrue: true, Reason: "correct : Article 1 says so."},
		{IsTrue: false, Reason: "INCORRECT: It was 1976."},
		{IsTrue: true, Reason: "Correctly noted by the Court."},
	})
	want := "Statement 1 is correct: Article 1 says so.\n" +
		"Statement 2 is incorrect: It was 1976.\n" +
		"Statement 3 is correct: Correctly noted by the Court."
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestTransform_InvalidBatch(t *testing.T) {
	tr := NewTransformer(nil, seeded(), nil)
	for _, b := range []*statements.Batch{nil, makeBatch(true, false, true), makeBatch(true, true, true, true, false)} {
		_, err := tr.Transform(b)
		var invalid *InvalidBatchError
		if !errors.As(err, &invalid) {
			t.Errorf("expected *InvalidBatchError, got %v", err)
		}
	}
	if _, err := tr.TransformWithCount(makeBatch(true, true, true, true), 5); err == nil {
		t.Error("expected error for k=5")
	}
}

func TestTransform_FallbackKeepsAnswerCorrect(t *testing.T) {
	c := &Catalog{static: map[string][]Template{}, layouts: map[int][]Layout{}}
	if err := c.Register(4, "singles", []string{"1", "2", "3", "4"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr := NewTransformer(c, seeded(), nil)

	q, err := tr.TransformWithCount(makeBatch(true, true, true, true), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Fallback {
		t.Error("expected fallback flag")
	}
	if q.CorrectAnswer != "D" || q.Options["D"] != "1, 2, 3 and 4" {
		t.Errorf("fallback answer %s = %q", q.CorrectAnswer, q.Options[q.CorrectAnswer])
	}
	if q.Template != "singles+fallback" {
		t.Errorf("template = %q", q.Template)
	}
	if c.Layouts(4)[0].Options[3] != "4 only" {
		t.Error("fallback must not modify the registered layout")
	}

	q, err = tr.TransformWithCount(makeBatch(false, false, false, false), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Fallback || q.Options[q.CorrectAnswer] != "None of the above" {
		t.Errorf("unexpected fallback for empty layouts: %+v", q)
	}
	if err := q.Validate(); err != nil {
		t.Errorf("fallback MCQ invalid: %v", err)
	}
}

func TestTransform_Concurrent(t *testing.T) {
	tr := NewTransformer(nil, nil, nil)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				q, err := tr.Transform(makeBatch(true, false, true, true))
				if err != nil || q.Validate() != nil {
					t.Errorf("bad transform: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestMCQ_CloneIsDeep(t *testing.T) {
	q, _ := NewTransformer(nil, seeded(), nil).Transform(makeBatch(true, true, false, false))
	c := q.Clone()
	c.Options["A"] = "changed"
	c.Question[0] = "changed"
	if q.Options["A"] == "changed" || q.Question[0] == "changed" {
		t.Error("clone shares state")
	}
}
