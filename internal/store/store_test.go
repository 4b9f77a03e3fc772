package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/evaluation"
	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/mcq"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.Driver() == nil {
		t.Fatal("expected non-nil driver")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSequenceMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		n, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if n <= last {
			t.Fatalf("sequence %d not greater than %d", n, last)
		}
		last = n
	}
}

func sampleTree() *contenttree.Tree {
	return &contenttree.Tree{Topics: []contenttree.Topic{{
		Topic: "Fundamental Rights",
		Subtopics: []contenttree.Subtopic{{
			Subtopic: "Right to Equality",
			Details: []contenttree.Detail{{
				Detail: "Article 17",
				Subdetails: []contenttree.Subdetail{{
					Subdetail:   "Abolition of untouchability",
					Particulars: []string{"Protection of Civil Rights Act, 1955"},
				}},
			}},
		}},
	}}}
}

func TestMappingFindMissing(t *testing.T) {
	s := openTestStore(t)
	tree, err := s.MappingRepo().FindMapping(context.Background(), "polity", "rights")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if tree != nil {
		t.Fatalf("expected nil tree, got %+v", tree)
	}
}

func TestMappingSaveAndReplace(t *testing.T) {
	s := openTestStore(t)
	repo := s.MappingRepo()
	ctx := context.Background()

	if err := repo.SaveMapping(ctx, "polity", "rights", sampleTree()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.FindMapping(ctx, "polity", "rights")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || len(got.Topics) != 1 || got.Topics[0].Topic != "Fundamental Rights" {
		t.Fatalf("unexpected tree: %+v", got)
	}
	particulars := got.Topics[0].Subtopics[0].Details[0].Subdetails[0].Particulars
	if len(particulars) != 1 {
		t.Fatalf("particulars = %v", particulars)
	}

	// Second save replaces, it does not append.
	replacement := &contenttree.Tree{Topics: []contenttree.Topic{{Topic: "DPSP"}}}
	if err := repo.SaveMapping(ctx, "polity", "rights", replacement); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, err = repo.FindMapping(ctx, "polity", "rights")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got.Topics) != 1 || got.Topics[0].Topic != "DPSP" {
		t.Fatalf("expected replaced tree, got %+v", got)
	}

	chapters, err := repo.ListChapters(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	if chapters[0].NodeCount != 1 {
		t.Errorf("node count = %d, want 1", chapters[0].NodeCount)
	}
}

func TestMappingKeyedByCategoryAndChapter(t *testing.T) {
	s := openTestStore(t)
	repo := s.MappingRepo()
	ctx := context.Background()

	if err := repo.SaveMapping(ctx, "polity", "rights", sampleTree()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveMapping(ctx, "history", "rights", &contenttree.Tree{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.FindMapping(ctx, "history", "rights")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || !got.IsEmpty() {
		t.Fatalf("expected empty history tree, got %+v", got)
	}

	polity, err := repo.ListChapters(ctx, "polity")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(polity) != 1 || polity[0].Category != "polity" {
		t.Fatalf("unexpected chapters: %+v", polity)
	}

	if err := repo.DeleteMapping(ctx, "polity", "rights"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = repo.FindMapping(ctx, "polity", "rights")
	if err != nil || got != nil {
		t.Fatalf("expected deleted mapping, got %+v (%v)", got, err)
	}
}

func sampleMCQ() *mcq.MCQ {
	return &mcq.MCQ{
		Question: []string{
			"Consider the following statements:",
			"1. Article 17 abolishes untouchability.",
			"2. Article 18 abolishes titles.",
			"Which of the statements given above is/are correct?",
		},
		Options: map[string]string{
			"A": "1 only", "B": "2 only", "C": "Both 1 and 2", "D": "Neither 1 nor 2",
		},
		CorrectAnswer: "C",
		Explanation:   "Statement 1 is correct: ...\nStatement 2 is correct: ...",
		Phrase:        "Both 1 and 2",
		Template:      "pair/C",
	}
}

func TestMCQSaveGetList(t *testing.T) {
	s := openTestStore(t)
	repo := s.MCQRepo()
	ctx := context.Background()

	first := &MCQRecord{Session: "s1", Category: "polity", Chapter: "rights", Node: "Article 17", MCQ: sampleMCQ()}
	if err := repo.SaveMCQ(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ID == "" || first.Sequence == 0 {
		t.Fatalf("expected id and sequence to be assigned: %+v", first)
	}
	if first.Stage != evaluation.StageGenerated {
		t.Errorf("stage = %q, want generated", first.Stage)
	}

	second := &MCQRecord{Session: "s2", Category: "polity", Chapter: "rights", Node: "Article 18",
		Stage: evaluation.StageApproved, MCQ: sampleMCQ()}
	if err := repo.SaveMCQ(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetMCQ(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Node != "Article 17" || got.MCQ.CorrectAnswer != "C" || got.MCQ.Template != "pair/C" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(got.MCQ.Question) != 4 || got.MCQ.Options["D"] != "Neither 1 nor 2" {
		t.Fatalf("question body not round-tripped: %+v", got.MCQ)
	}

	all, err := repo.ListMCQs(ctx, MCQFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %d records", len(all))
	}

	approved, err := repo.ListMCQs(ctx, MCQFilter{Stage: evaluation.StageApproved})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != second.ID {
		t.Fatalf("stage filter: got %+v", approved)
	}

	bySession, err := repo.ListMCQs(ctx, MCQFilter{Session: "s1", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bySession) != 1 || bySession[0].ID != first.ID {
		t.Fatalf("session filter: got %+v", bySession)
	}

	paged, err := repo.ListMCQs(ctx, MCQFilter{Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != first.ID {
		t.Fatalf("offset: got %+v", paged)
	}
}

func TestMCQGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.MCQRepo().GetMCQ(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMCQUpdateAndCount(t *testing.T) {
	s := openTestStore(t)
	repo := s.MCQRepo()
	ctx := context.Background()

	rec := &MCQRecord{Category: "polity", Chapter: "rights", Node: "n", MCQ: sampleMCQ()}
	if err := repo.SaveMCQ(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	fixed := sampleMCQ()
	fixed.CorrectAnswer = "A"
	fixed.Phrase = "1 only"
	if err := repo.UpdateMCQ(ctx, rec.ID, evaluation.StageRepaired, 1, fixed); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetMCQ(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stage != evaluation.StageRepaired || got.Revisions != 1 || got.MCQ.CorrectAnswer != "A" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := repo.UpdateMCQ(ctx, "missing", evaluation.StageApproved, 0, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateMCQ(ctx, rec.ID, evaluation.Stage("bogus"), 0, nil); err == nil {
		t.Fatal("expected error for unknown stage")
	}

	counts, err := repo.CountByStage(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[evaluation.StageRepaired] != 1 || counts[evaluation.StageGenerated] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []llm.RequestEvent{
		{Provider: "mock", Model: "mock", Purpose: "statements", ThreadID: "sess-1/w0",
			InputTokens: 100, OutputTokens: 50, LatencyMs: 10, Success: true},
		{Provider: "mock", Model: "mock", Purpose: "statements",
			InputTokens: 200, OutputTokens: 70, LatencyMs: 30, Success: true},
		{Provider: "mock", Model: "other", Purpose: "evaluate",
			InputTokens: 10, OutputTokens: 5, LatencyMs: 5, ErrorMessage: "boom"},
	}
	for _, ev := range events {
		if err := repo.AppendLLMRequest(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Purpose != "evaluate" || got[0].Success {
		t.Errorf("expected newest failed evaluate event first, got %+v", got[0])
	}

	one, err := repo.GetLLMEvent(ctx, got[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if one.InputTokens != 200 {
		t.Errorf("input tokens = %d, want 200", one.InputTokens)
	}
	if time.Since(one.Timestamp) > time.Minute {
		t.Errorf("timestamp not recent: %v", one.Timestamp)
	}

	filtered, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "statements"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 statements events, got %d", len(filtered))
	}

	bySession, err := repo.QueryLLMEvents(ctx, QueryOpts{Thread: "sess-1/"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(bySession) != 1 || bySession[0].ThreadID != "sess-1/w0" {
		t.Fatalf("thread prefix filter: %+v", bySession)
	}
	failed, err := repo.QueryLLMEvents(ctx, QueryOpts{FailedOnly: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorMessage != "boom" {
		t.Fatalf("failed filter: %+v", failed)
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 || byPurpose[0].Purpose != "statements" {
		t.Fatalf("unexpected usage: %+v", byPurpose)
	}
	if byPurpose[0].Calls != 2 || byPurpose[0].InputTokens != 300 || byPurpose[0].AvgLatencyMs != 20 {
		t.Errorf("unexpected statements usage: %+v", byPurpose[0])
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 || byModel[0].Model != "mock" || byModel[0].OutputTokens != 120 {
		t.Fatalf("unexpected model usage: %+v", byModel)
	}

	if _, err := repo.GetLLMEvent(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
