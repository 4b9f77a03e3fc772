package contenttree

import (
	"errors"
	"fmt"
)

// NodeRef points at a node inside a Tree. Exactly one of the node pointers
// is set, matching Level. A NodeRef is invalidated by any later insertion
// into the slice that holds the node.
type NodeRef struct {
	Level     Level
	Path      Path
	Root      *Tree
	Topic     *Topic
	Subtopic  *Subtopic
	Detail    *Detail
	Subdetail *Subdetail
}

// Label returns the node's label, or "" for the root.
func (r NodeRef) Label() string {
	switch r.Level {
	case LevelTopics:
		return r.Topic.Topic
	case LevelSubtopics:
		return r.Subtopic.Subtopic
	case LevelDetails:
		return r.Detail.Detail
	case LevelSubdetails:
		return r.Subdetail.Subdetail
	default:
		return ""
	}
}

// CreateOrGetNode resolves path against tree. Existing slots are returned
// as-is. An absent slot is created as an empty node only when it is the
// final segment and its index equals the current length of the slice, so
// a creation never leaves gaps. Any other absent slot is an InvalidPathError.
func CreateOrGetNode(tree *Tree, path Path) (NodeRef, error) {
	if tree == nil {
		return NodeRef{}, &InvalidPathError{Path: path.String(), Reason: "nil tree"}
	}
	ref := NodeRef{Level: LevelRoot, Root: tree}
	for i, seg := range path {
		terminal := i == len(path)-1
		want := Level(i + 1)
		if seg.Level != want {
			return NodeRef{}, &InvalidPathError{Path: path.String(), Reason: fmt.Sprintf("segment %d is %s, expected %s", i, seg.Level.Key(), want.Key())}
		}
		slot, err := step(ref, seg, terminal)
		if err != nil {
			return NodeRef{}, &InvalidPathError{Path: path.String(), Reason: err.Error()}
		}
		slot.Path = path[:i+1]
		slot.Root = tree
		ref = slot
	}
	ref.Path = path
	return ref, nil
}

// step descends one segment from parent, creating the slot if allowed.
func step(parent NodeRef, seg Segment, terminal bool) (NodeRef, error) {
	switch seg.Level {
	case LevelTopics:
		s := &parent.Root.Topics
		if err := ensureSlot(len(*s), seg, terminal); err != nil {
			return NodeRef{}, err
		}
		if seg.Index == len(*s) {
			*s = append(*s, Topic{})
		}
		return NodeRef{Level: LevelTopics, Topic: &(*s)[seg.Index]}, nil
	case LevelSubtopics:
		s := &parent.Topic.Subtopics
		if err := ensureSlot(len(*s), seg, terminal); err != nil {
			return NodeRef{}, err
		}
		if seg.Index == len(*s) {
			*s = append(*s, Subtopic{})
		}
		return NodeRef{Level: LevelSubtopics, Subtopic: &(*s)[seg.Index]}, nil
	case LevelDetails:
		s := &parent.Subtopic.Details
		if err := ensureSlot(len(*s), seg, terminal); err != nil {
			return NodeRef{}, err
		}
		if seg.Index == len(*s) {
			*s = append(*s, Detail{})
		}
		return NodeRef{Level: LevelDetails, Detail: &(*s)[seg.Index]}, nil
	case LevelSubdetails:
		s := &parent.Detail.Subdetails
		if err := ensureSlot(len(*s), seg, terminal); err != nil {
			return NodeRef{}, err
		}
		if seg.Index == len(*s) {
			*s = append(*s, Subdetail{})
		}
		return NodeRef{Level: LevelSubdetails, Subdetail: &(*s)[seg.Index]}, nil
	}
	return NodeRef{}, fmt.Errorf("unsupported level %d", seg.Level)
}

func ensureSlot(n int, seg Segment, terminal bool) error {
	switch {
	case seg.Index < n:
		return nil
	case seg.Index == n && terminal:
		return nil
	case seg.Index == n:
		return fmt.Errorf("%s[%d] does not exist and is not the terminal segment", seg.Level.Key(), seg.Index)
	default:
		return fmt.Errorf("%s[%d] is beyond the end (len %d)", seg.Level.Key(), seg.Index, n)
	}
}

// NewEntries is a set of additions to a tree. Topics are appended at the
// root; every other entry names the parent it is appended under.
type NewEntries struct {
	Topics      []Topic           `json:"topics,omitempty"`
	Subtopics   []SubtopicEntry   `json:"subtopics,omitempty"`
	Details     []DetailEntry     `json:"details,omitempty"`
	Subdetails  []SubdetailEntry  `json:"subdetails,omitempty"`
	Particulars []ParticularEntry `json:"particulars,omitempty"`
}

// SubtopicEntry adds a subtopic under the topic at ParentPath.
type SubtopicEntry struct {
	ParentPath string `json:"parentPath"`
	Subtopic
}

// DetailEntry adds a detail under the subtopic at ParentPath.
type DetailEntry struct {
	ParentPath string `json:"parentPath"`
	Detail
}

// SubdetailEntry adds a subdetail under the detail at ParentPath.
type SubdetailEntry struct {
	ParentPath string `json:"parentPath"`
	Subdetail
}

// ParticularEntry adds a fact string under the subdetail at ParentPath.
type ParticularEntry struct {
	ParentPath string `json:"parentPath"`
	Particular string `json:"particular"`
}

// Count returns the number of entries of all kinds.
func (e NewEntries) Count() int {
	return len(e.Topics) + len(e.Subtopics) + len(e.Details) + len(e.Subdetails) + len(e.Particulars)
}

// MergeNewEntries returns a deep copy of tree with entries appended. The
// input tree is never modified. Entries are applied in level order, so an
// entry may target a node added earlier in the same merge. Existing nodes
// are never modified, removed or deduplicated.
//
// An entry whose parent path is malformed, unresolvable or at the wrong
// level is skipped. The returned tree always holds every entry that could be
// placed; the returned error joins one *InvalidPathError per skipped entry.
func MergeNewEntries(tree *Tree, entries NewEntries) (*Tree, error) {
	out := tree.Clone()
	var errs []error

	for _, t := range entries.Topics {
		out.Topics = append(out.Topics, t.clone())
	}
	for _, e := range entries.Subtopics {
		ref, err := resolveParent(out, e.ParentPath, LevelTopics)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ref.Topic.Subtopics = append(ref.Topic.Subtopics, e.Subtopic.clone())
	}
	for _, e := range entries.Details {
		ref, err := resolveParent(out, e.ParentPath, LevelSubtopics)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ref.Subtopic.Details = append(ref.Subtopic.Details, e.Detail.clone())
	}
	for _, e := range entries.Subdetails {
		ref, err := resolveParent(out, e.ParentPath, LevelDetails)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ref.Detail.Subdetails = append(ref.Detail.Subdetails, e.Subdetail.clone())
	}
	for _, e := range entries.Particulars {
		ref, err := resolveParent(out, e.ParentPath, LevelSubdetails)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ref.Subdetail.Particulars = append(ref.Subdetail.Particulars, e.Particular)
	}

	return out, errors.Join(errs...)
}

func resolveParent(tree *Tree, raw string, want Level) (NodeRef, error) {
	p, err := ParsePath(raw)
	if err != nil {
		return NodeRef{}, err
	}
	if p.Level() != want {
		return NodeRef{}, &InvalidPathError{
			Path:   raw,
			Reason: fmt.Sprintf("parent must be a %s node, got %s", want.Key(), p.Level().Key()),
		}
	}
	return CreateOrGetNode(tree, p)
}
