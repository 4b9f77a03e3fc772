// Package batch runs mass production of questions: many select, generate,
// transform, review and save cycles against one chapter, with cooperative
// cancellation and progress events.
package batch

import "time"

// Status is the kind of a progress event.
type Status string

const (
	StatusProgress  Status = "progress"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further events follow a status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Progress is one event of a running session. Counts are cumulative.
type Progress struct {
	Status    Status    `json:"status"`
	Session   string    `json:"session"`
	Requested int       `json:"requested"`
	Produced  int       `json:"produced"`
	Rejected  int       `json:"rejected"`
	Failed    int       `json:"failed"`
	MCQID     string    `json:"mcqId,omitempty"`
	Node      string    `json:"node,omitempty"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}

// Done is the number of items finished either way.
func (p Progress) Done() int {
	return p.Produced + p.Rejected + p.Failed
}
