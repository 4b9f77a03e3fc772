package evaluation

import (
	"context"
	"fmt"

	"github.com/abhisek/mcqforge/internal/logger"
	"github.com/abhisek/mcqforge/internal/mcq"
)

// DefaultMaxRevisions bounds the repair cycles for one question.
const DefaultMaxRevisions = 3

// Loop runs a question through review until it is accepted, rejected, or
// out of revisions.
type Loop struct {
	reviewer     Reviewer
	maxRevisions int
	log          *logger.Logger
}

// NewLoop creates a Loop. maxRevisions below 1 uses DefaultMaxRevisions.
func NewLoop(reviewer Reviewer, maxRevisions int, log *logger.Logger) *Loop {
	if maxRevisions < 1 {
		maxRevisions = DefaultMaxRevisions
	}
	return &Loop{reviewer: reviewer, maxRevisions: maxRevisions, log: logger.OrNop(log)}
}

// Run reviews q. An accepted original is approved; an accepted correction is
// repaired; a reject verdict, or a repair requested after maxRevisions
// accepted corrections, is rejected. A malformed correction is recorded as
// a fault, costs a revision, and the previous version is reviewed again.
// q itself is never modified.
func (l *Loop) Run(ctx context.Context, q *mcq.MCQ) (*Outcome, error) {
	current := q.Clone()
	out := &Outcome{Stage: StageGenerated, MCQ: current}
	repaired := false

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := l.reviewer.Evaluate(ctx, current)
		if err != nil {
			return nil, err
		}

		switch v.Action {
		case ActionAccept:
			out.Stage = StageApproved
			if repaired {
				out.Stage = StageRepaired
			}
			out.MCQ = current
			return out, nil

		case ActionReject:
			out.Faults = append(out.Faults, v.Fault)
			out.Stage = StageRejected
			out.MCQ = current
			return out, nil
		}

		out.Faults = append(out.Faults, v.Fault)
		if out.Revisions >= l.maxRevisions {
			out.Faults = append(out.Faults, fmt.Sprintf("rejected after %d revisions", out.Revisions))
			out.Stage = StageRejected
			out.MCQ = current
			return out, nil
		}
		out.Revisions++

		if v.Corrected == nil {
			out.Faults = append(out.Faults, "repair verdict without a corrected question")
			continue
		}
		if err := v.Corrected.Validate(); err != nil {
			out.Faults = append(out.Faults, "malformed correction: "+err.Error())
			l.log.Warn("discarding malformed correction", "revision", out.Revisions, "error", err)
			continue
		}
		current = v.Corrected
		repaired = true
		l.log.Debug("question repaired", "revision", out.Revisions, "fault", v.Fault)
	}
}
