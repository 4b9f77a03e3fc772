// Package statements generates batches of true/false statements about a
// content node, enforcing the exact-count contract on untrusted oracle
// output.
package statements

// BatchSize is the number of statements in every batch.
const BatchSize = 4

// Statement is a single factual assertion with its truth value.
type Statement struct {
	Text   string `json:"text"`
	IsTrue bool   `json:"isTrue"`
	// Reason justifies the truth value, conventionally prefixed with
	// "Correct:" or "Incorrect:".
	Reason string `json:"reason"`
}

// TopicContext locates the content a batch is written about. The oracle
// receives it verbatim.
type TopicContext struct {
	Category string `json:"category"`
	Chapter  string `json:"chapter"`
	Node     string `json:"node"`
}

// Batch is exactly BatchSize statements, FalseCount of which are false.
type Batch struct {
	Context    TopicContext `json:"context"`
	FalseCount int          `json:"falseCount"`
	Statements []Statement  `json:"statements"`
}

// TrueCount returns the number of true statements.
func (b *Batch) TrueCount() int {
	n := 0
	for _, s := range b.Statements {
		if s.IsTrue {
			n++
		}
	}
	return n
}
