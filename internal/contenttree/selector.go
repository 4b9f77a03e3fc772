package contenttree

import (
	"math/rand/v2"
	"sync"
)

// Flatten walks the tree depth-first and returns every node label and every
// particular verbatim, in document order. Empty labels (placeholders created
// by CreateOrGetNode) are skipped; whitespace is kept as is.
func Flatten(t *Tree) []string {
	if t == nil {
		return nil
	}
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, s)
		}
	}
	for _, tp := range t.Topics {
		add(tp.Topic)
		for _, st := range tp.Subtopics {
			add(st.Subtopic)
			for _, d := range st.Details {
				add(d.Detail)
				for _, sd := range d.Subdetails {
					add(sd.Subdetail)
					for _, p := range sd.Particulars {
						add(p)
					}
				}
			}
		}
	}
	return out
}

// Selector draws nodes uniformly from the flattened tree. A chapter rich in
// particulars will mostly yield particulars; selection is not balanced across
// depth. It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector drawing from rng. A nil rng uses a randomly
// seeded source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{rng: rng}
}

// Select returns one label of t, or ErrEmptyTree.
func (s *Selector) Select(t *Tree) (string, error) {
	if t.IsEmpty() {
		return "", ErrEmptyTree
	}
	labels := Flatten(t)
	if len(labels) == 0 {
		return "", ErrEmptyTree
	}
	s.mu.Lock()
	i := s.rng.IntN(len(labels))
	s.mu.Unlock()
	return labels[i], nil
}

var defaultSelector = NewSelector(nil)

// SelectRandomNode returns a label drawn uniformly from Flatten(t).
func SelectRandomNode(t *Tree) (string, error) {
	return defaultSelector.Select(t)
}
