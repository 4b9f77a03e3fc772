// Package contenttree models a chapter's content outline and the operations
// on it: path-addressed insertion, flattening, random node selection, and
// oracle-driven building and expansion.
package contenttree

import (
	"fmt"
	"strings"
)

// MaxDepth is the number of levels in a tree, particulars included.
const MaxDepth = 5

// Tree is the outline of one chapter. Every node is owned by exactly one
// parent; the tree is rebuilt or extended only through MergeNewEntries.
type Tree struct {
	Topics []Topic `json:"topics"`
}

// Topic is a first-level node.
type Topic struct {
	Topic     string     `json:"topic"`
	Subtopics []Subtopic `json:"subtopics,omitempty"`
}

// Subtopic is a second-level node.
type Subtopic struct {
	Subtopic string   `json:"subtopic"`
	Details  []Detail `json:"details,omitempty"`
}

// Detail is a third-level node.
type Detail struct {
	Detail     string      `json:"detail"`
	Subdetails []Subdetail `json:"subdetails,omitempty"`
}

// Subdetail is a fourth-level node. Its particulars are plain fact strings.
type Subdetail struct {
	Subdetail   string   `json:"subdetail"`
	Particulars []string `json:"particulars,omitempty"`
}

// Clone returns a deep copy of the tree. A nil tree clones to an empty one.
func (t *Tree) Clone() *Tree {
	out := &Tree{}
	if t == nil || t.Topics == nil {
		return out
	}
	out.Topics = make([]Topic, len(t.Topics))
	for i, tp := range t.Topics {
		out.Topics[i] = tp.clone()
	}
	return out
}

func (t Topic) clone() Topic {
	c := Topic{Topic: t.Topic}
	if t.Subtopics != nil {
		c.Subtopics = make([]Subtopic, len(t.Subtopics))
		for i, s := range t.Subtopics {
			c.Subtopics[i] = s.clone()
		}
	}
	return c
}

func (s Subtopic) clone() Subtopic {
	c := Subtopic{Subtopic: s.Subtopic}
	if s.Details != nil {
		c.Details = make([]Detail, len(s.Details))
		for i, d := range s.Details {
			c.Details[i] = d.clone()
		}
	}
	return c
}

func (d Detail) clone() Detail {
	c := Detail{Detail: d.Detail}
	if d.Subdetails != nil {
		c.Subdetails = make([]Subdetail, len(d.Subdetails))
		for i, sd := range d.Subdetails {
			c.Subdetails[i] = sd.clone()
		}
	}
	return c
}

func (sd Subdetail) clone() Subdetail {
	c := Subdetail{Subdetail: sd.Subdetail}
	if sd.Particulars != nil {
		c.Particulars = append([]string(nil), sd.Particulars...)
	}
	return c
}

// IsEmpty reports whether the tree has no topics.
func (t *Tree) IsEmpty() bool {
	return t == nil || len(t.Topics) == 0
}

// Depth returns the number of populated levels, from 0 for an empty tree
// to MaxDepth when at least one particular exists.
func (t *Tree) Depth() int {
	if t.IsEmpty() {
		return 0
	}
	depth := 1
	for _, tp := range t.Topics {
		for _, st := range tp.Subtopics {
			depth = max(depth, 2)
			for _, d := range st.Details {
				depth = max(depth, 3)
				for _, sd := range d.Subdetails {
					depth = max(depth, 4)
					if len(sd.Particulars) > 0 {
						return MaxDepth
					}
				}
			}
		}
	}
	return depth
}

// NodeCount returns the number of labelled nodes, particulars included.
func (t *Tree) NodeCount() int {
	return len(Flatten(t))
}

// Validate reports blank labels in an outline. Blank nodes are legal in a
// merged tree (CreateOrGetNode creates them) but an oracle-built outline
// should never contain them.
func (t *Tree) Validate() error {
	if t.IsEmpty() {
		return ErrEmptyTree
	}
	var problems []string
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }
	for i, tp := range t.Topics {
		p := fmt.Sprintf("topics[%d]", i)
		if blank(tp.Topic) {
			problems = append(problems, p+" has no label")
		}
		for j, st := range tp.Subtopics {
			p := fmt.Sprintf("%s.subtopics[%d]", p, j)
			if blank(st.Subtopic) {
				problems = append(problems, p+" has no label")
			}
			for k, d := range st.Details {
				p := fmt.Sprintf("%s.details[%d]", p, k)
				if blank(d.Detail) {
					problems = append(problems, p+" has no label")
				}
				for l, sd := range d.Subdetails {
					p := fmt.Sprintf("%s.subdetails[%d]", p, l)
					if blank(sd.Subdetail) {
						problems = append(problems, p+" has no label")
					}
					for m, part := range sd.Particulars {
						if blank(part) {
							problems = append(problems, fmt.Sprintf("%s.particulars[%d] is blank", p, m))
						}
					}
				}
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid outline: %s", strings.Join(problems, "; "))
	}
	return nil
}
