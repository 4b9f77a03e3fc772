// Package evaluation reviews produced questions with the oracle and
// governs their promotion between pipeline stages.
package evaluation

import "github.com/abhisek/mcqforge/internal/mcq"

// Action is the reviewer's decision on a question.
type Action string

const (
	ActionAccept Action = "accept"
	ActionRepair Action = "repair"
	ActionReject Action = "reject"
)

// Stage is a question's position in the pipeline:
// generated -> approved | repaired | rejected.
type Stage string

const (
	StageGenerated Stage = "generated"
	StageApproved  Stage = "approved"
	StageRepaired  Stage = "repaired"
	StageRejected  Stage = "rejected"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageGenerated, StageApproved, StageRepaired, StageRejected:
		return true
	}
	return false
}

// Verdict is the outcome of one review.
type Verdict struct {
	Action Action
	// Fault describes what the reviewer found wrong. Empty on accept.
	Fault string
	// Corrected is the reviewer's alternate version. Set only on repair.
	Corrected *mcq.MCQ
}

// Outcome is the result of running a question through the loop.
type Outcome struct {
	Stage     Stage    `json:"stage"`
	MCQ       *mcq.MCQ `json:"mcq"`
	Revisions int      `json:"revisions"`
	Faults    []string `json:"faults,omitempty"`
}
