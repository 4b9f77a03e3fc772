package mcq

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/abhisek/mcqforge/internal/logger"
	"github.com/abhisek/mcqforge/internal/statements"
)

// Transformer renders statement batches as combination questions. It is
// safe for concurrent use.
type Transformer struct {
	catalog *Catalog
	log     *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTransformer returns a Transformer drawing layouts from catalog. A nil
// catalog uses DefaultCatalog; a nil rng uses a randomly seeded source.
func NewTransformer(catalog *Catalog, rng *rand.Rand, log *logger.Logger) *Transformer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Transformer{catalog: catalog, rng: rng, log: logger.OrNop(log)}
}

// draw holds the random choices of one transformation.
type draw struct {
	k       int
	display []statements.Statement
}

// drawStatements picks the displayed statements. A k of zero draws the
// count as well.
func (t *Transformer) drawStatements(stmts []statements.Statement, k int) draw {
	t.mu.Lock()
	defer t.mu.Unlock()

	if k == 0 {
		k = Counts[t.rng.IntN(len(Counts))]
	}

	shuffled := slices.Clone(stmts)
	t.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	positions := t.rng.Perm(len(shuffled))[:k]
	slices.Sort(positions)

	display := make([]statements.Statement, k)
	for i, p := range positions {
		display[i] = shuffled[p]
	}
	return draw{k: k, display: display}
}

func (t *Transformer) intN(n int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rng.IntN(n)
}

// Transform renders a question from exactly four statements. Between two
// and four of them are displayed, chosen and ordered at random, and the
// correct answer is the layout option naming exactly the true ones.
func (t *Transformer) Transform(batch *statements.Batch) (*MCQ, error) {
	if batch == nil {
		return nil, &InvalidBatchError{}
	}
	if len(batch.Statements) != statements.BatchSize {
		return nil, &InvalidBatchError{Count: len(batch.Statements)}
	}

	return t.render(t.drawStatements(batch.Statements, 0)), nil
}

// TransformWithCount is Transform with the number of displayed statements
// fixed to k.
func (t *Transformer) TransformWithCount(batch *statements.Batch, k int) (*MCQ, error) {
	if batch == nil {
		return nil, &InvalidBatchError{}
	}
	if len(batch.Statements) != statements.BatchSize {
		return nil, &InvalidBatchError{Count: len(batch.Statements)}
	}
	if !slices.Contains(Counts, k) {
		return nil, fmt.Errorf("unsupported statement count %d", k)
	}
	return t.render(t.drawStatements(batch.Statements, k)), nil
}

func (t *Transformer) render(d draw) *MCQ {
	var trueIdx []int
	for i, s := range d.display {
		if s.IsTrue {
			trueIdx = append(trueIdx, i+1)
		}
	}
	phrase := Phrase(d.k, trueIdx)

	layout, fallback := t.pickLayout(d.k, phrase)

	options := make(map[string]string, len(Letters))
	for i, l := range Letters {
		options[l] = layout.Options[i]
	}

	idx := slices.Index(layout.Options, phrase)
	correct := "A"
	if idx < 0 {
		t.log.Error("correct phrase missing from layout, defaulting to A",
			"phrase", phrase,
			"layout", layout.Name,
		)
	} else {
		correct = Letters[idx]
	}

	question := make([]string, 0, d.k+2)
	question = append(question, stemLine)
	for i, s := range d.display {
		question = append(question, fmt.Sprintf("%d. %s", i+1, s.Text))
	}
	question = append(question, closingLine)

	return &MCQ{
		Question:      question,
		Options:       options,
		CorrectAnswer: correct,
		Explanation:   explain(d.display),
		Phrase:        phrase,
		Template:      layout.Name,
		Statements:    d.display,
		Fallback:      fallback,
	}
}

// pickLayout chooses uniformly among the layouts for k that offer phrase.
// When none does, the first layout for k is patched to carry phrase in its
// last slot, so the answer stays correct, and the anomaly is logged.
func (t *Transformer) pickLayout(k int, phrase string) (Layout, bool) {
	layouts := t.catalog.Layouts(k)

	var matches []Layout
	for _, l := range layouts {
		if l.Contains(phrase) {
			matches = append(matches, l)
		}
	}
	if len(matches) > 0 {
		return matches[t.intN(len(matches))], false
	}

	t.log.Warn("no layout offers the correct phrase, patching fallback layout",
		"k", k,
		"phrase", phrase,
	)
	if len(layouts) == 0 {
		var opts []string
		for _, p := range reachablePhrases(k) {
			if p != phrase && len(opts) < len(Letters)-1 {
				opts = append(opts, p)
			}
		}
		return Layout{Name: "fallback", K: k, Options: append(opts, phrase)}, true
	}
	l := layouts[0]
	l.Options = slices.Clone(l.Options)
	l.Options[len(l.Options)-1] = phrase
	l.Name += "+fallback"
	return l, true
}

var verdictPrefix = regexp.MustCompile(`(?i)^\s*(in)?correct\s*:\s*`)

// explain renders one line per displayed statement.
func explain(display []statements.Statement) string {
	lines := make([]string, len(display))
	for i, s := range display {
		verdict := "incorrect"
		if s.IsTrue {
			verdict = "correct"
		}
		reason := verdictPrefix.ReplaceAllString(s.Reason, "")
		lines[i] = fmt.Sprintf("Statement %d is %s: %s", i+1, verdict, reason)
	}
	return strings.Join(lines, "\n")
}
