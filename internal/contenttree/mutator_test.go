package contenttree

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func sampleTree() *Tree {
	return &Tree{Topics: []Topic{{
		Topic: "A",
		Subtopics: []Subtopic{{
			Subtopic: "B",
			Details: []Detail{{
				Detail: "C",
				Subdetails: []Subdetail{{
					Subdetail:   "D",
					Particulars: []string{"E", "F"},
				}},
			}},
		}},
	}}}
}

func TestCreateOrGetNode_Existing(t *testing.T) {
	tree := sampleTree()
	p, _ := ParsePath("root.topics[0].subtopics[0].details[0]")
	ref, err := CreateOrGetNode(tree, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Level != LevelDetails || ref.Label() != "C" {
		t.Errorf("got %v %q, want details C", ref.Level, ref.Label())
	}
}

func TestCreateOrGetNode_CreatesTerminalSlot(t *testing.T) {
	tree := sampleTree()
	p, _ := ParsePath("topics[0].subtopics[1]")
	ref, err := CreateOrGetNode(tree, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Label() != "" {
		t.Errorf("expected empty node, got %q", ref.Label())
	}
	if len(tree.Topics[0].Subtopics) != 2 {
		t.Fatalf("expected slot to be created, have %d subtopics", len(tree.Topics[0].Subtopics))
	}
}

func TestCreateOrGetNode_Rejects(t *testing.T) {
	tests := []string{
		"topics[1].subtopics[0]", // absent non-terminal
		"topics[5]",              // gap
		"topics[0].subtopics[3]", // gap
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			tree := sampleTree()
			p, err := ParsePath(in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err = CreateOrGetNode(tree, p)
			var pathErr *InvalidPathError
			if !errors.As(err, &pathErr) {
				t.Fatalf("expected *InvalidPathError, got %v", err)
			}
			if !reflect.DeepEqual(tree, sampleTree()) {
				t.Error("tree changed on failed resolve")
			}
		})
	}
}

func TestMergeNewEntries_SubtopicUnderRoot(t *testing.T) {
	tree := &Tree{Topics: []Topic{{Topic: "A", Subtopics: []Subtopic{}}}}
	merged, err := MergeNewEntries(tree, NewEntries{
		Subtopics: []SubtopicEntry{{ParentPath: "root.topics[0]", Subtopic: Subtopic{Subtopic: "B"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(merged.Topics[0].Subtopics); got != 1 {
		t.Fatalf("expected 1 subtopic, got %d", got)
	}
	if merged.Topics[0].Topic != "A" {
		t.Errorf("topic label changed to %q", merged.Topics[0].Topic)
	}
	if len(tree.Topics[0].Subtopics) != 0 {
		t.Error("input tree was mutated")
	}
}

func TestMergeNewEntries_AllLevels(t *testing.T) {
	tree := sampleTree()
	before := sampleTree()

	merged, err := MergeNewEntries(tree, NewEntries{
		Topics:    []Topic{{Topic: "G"}},
		Subtopics: []SubtopicEntry{{ParentPath: "topics[1]", Subtopic: Subtopic{Subtopic: "H"}}},
		Details:   []DetailEntry{{ParentPath: "topics[1].subtopics[0]", Detail: Detail{Detail: "I"}}},
		Subdetails: []SubdetailEntry{
			{ParentPath: "topics[1].subtopics[0].details[0]", Subdetail: Subdetail{Subdetail: "J"}},
		},
		Particulars: []ParticularEntry{
			{ParentPath: "topics[0].subtopics[0].details[0].subdetails[0]", Particular: "E"},
			{ParentPath: "topics[1].subtopics[0].details[0].subdetails[0]", Particular: "K"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"A", "B", "C", "D", "E", "F", "E", "G", "H", "I", "J", "K"}
	if got := Flatten(merged); !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(tree, before) {
		t.Error("input tree was mutated")
	}
}

func TestMergeNewEntries_SkipsBadEntries(t *testing.T) {
	tree := sampleTree()
	merged, err := MergeNewEntries(tree, NewEntries{
		Subtopics: []SubtopicEntry{
			{ParentPath: "topics[0]", Subtopic: Subtopic{Subtopic: "ok"}},
			{ParentPath: "topics[x]", Subtopic: Subtopic{Subtopic: "bad-index"}},
		},
		Details: []DetailEntry{
			{ParentPath: "topics[0]", Detail: Detail{Detail: "wrong-level"}},
		},
		Particulars: []ParticularEntry{
			{ParentPath: "topics[3].subtopics[0].details[0].subdetails[0]", Particular: "missing"},
		},
	})
	if err == nil {
		t.Fatal("expected joined error")
	}
	var pathErr *InvalidPathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *InvalidPathError in %v", err)
	}
	if u, ok := err.(interface{ Unwrap() []error }); !ok || len(u.Unwrap()) != 3 {
		t.Errorf("expected 3 skipped entries, got %v", err)
	}
	if got := len(merged.Topics[0].Subtopics); got != 2 {
		t.Errorf("expected valid entry to be merged, have %d subtopics", got)
	}
	if len(merged.Topics) != 1 {
		t.Errorf("failed entries must not create nodes, have %d topics", len(merged.Topics))
	}
}

func TestMergeNewEntries_NilTree(t *testing.T) {
	merged, err := MergeNewEntries(nil, NewEntries{Topics: []Topic{{Topic: "Polity"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Topics) != 1 || merged.Topics[0].Topic != "Polity" {
		t.Errorf("unexpected tree: %+v", merged)
	}
}

func TestNewEntries_JSON(t *testing.T) {
	raw := `{
		"subtopics": [{"parentPath": "root.topics[0]", "subtopic": "Fundamental Rights", "details": [{"detail": "Article 14"}]}],
		"particulars": [{"parentPath": "root.topics[0].subtopics[0].details[0].subdetails[0]", "particular": "Equality before law"}]
	}`
	var e NewEntries
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Subtopics[0].ParentPath != "root.topics[0]" || e.Subtopics[0].Subtopic.Subtopic != "Fundamental Rights" {
		t.Errorf("unexpected subtopic entry: %+v", e.Subtopics[0])
	}
	if len(e.Subtopics[0].Details) != 1 {
		t.Errorf("nested details not decoded")
	}
	if e.Count() != 2 {
		t.Errorf("Count() = %d, want 2", e.Count())
	}
}

func TestTree_CloneIsDeep(t *testing.T) {
	tree := sampleTree()
	c := tree.Clone()
	c.Topics[0].Subtopics[0].Details[0].Subdetails[0].Particulars[0] = "changed"
	if tree.Topics[0].Subtopics[0].Details[0].Subdetails[0].Particulars[0] != "E" {
		t.Error("clone shares particulars with original")
	}
}

func TestTree_DepthAndValidate(t *testing.T) {
	if d := sampleTree().Depth(); d != MaxDepth {
		t.Errorf("Depth = %d, want %d", d, MaxDepth)
	}
	if d := (&Tree{Topics: []Topic{{Topic: "A"}}}).Depth(); d != 1 {
		t.Errorf("Depth = %d, want 1", d)
	}
	if err := sampleTree().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&Tree{}).Validate(); !errors.Is(err, ErrEmptyTree) {
		t.Errorf("expected ErrEmptyTree, got %v", err)
	}
	bad := &Tree{Topics: []Topic{{Topic: " ", Subtopics: []Subtopic{{Subtopic: "x"}}}}}
	if err := bad.Validate(); err == nil {
		t.Error("expected blank label error")
	}
}
