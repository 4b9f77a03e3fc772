package store

import (
	"context"
	"time"

	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/evaluation"
	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/mcq"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match
	// Thread matches thread ids with this prefix. A batch session id
	// selects every exchange of that session.
	Thread     string
	FailedOnly bool
}

// MappingRepo persists one content tree per (category, chapter).
type MappingRepo interface {
	// FindMapping returns the stored tree, or nil with no error when the
	// chapter has never been saved.
	FindMapping(ctx context.Context, category, chapter string) (*contenttree.Tree, error)

	// SaveMapping replaces the stored tree. Last writer wins.
	SaveMapping(ctx context.Context, category, chapter string, tree *contenttree.Tree) error

	// ListChapters returns a summary of every stored chapter.
	ListChapters(ctx context.Context, category string) ([]ChapterInfo, error)

	// DeleteMapping removes a chapter. Deleting a missing chapter is not an error.
	DeleteMapping(ctx context.Context, category, chapter string) error
}

// ChapterInfo summarizes a stored mapping.
type ChapterInfo struct {
	Category  string    `json:"category"`
	Chapter   string    `json:"chapter"`
	NodeCount int       `json:"nodeCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MCQRecord is a persisted question and its pipeline state.
type MCQRecord struct {
	ID        string           `json:"id"`
	Sequence  int64            `json:"sequence"`
	Session   string           `json:"session,omitempty"`
	Category  string           `json:"category"`
	Chapter   string           `json:"chapter"`
	Node      string           `json:"node"`
	Stage     evaluation.Stage `json:"stage"`
	Revisions int              `json:"revisions"`
	MCQ       *mcq.MCQ         `json:"mcq"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// MCQFilter narrows ListMCQs. Zero values match everything.
type MCQFilter struct {
	Category string
	Chapter  string
	Session  string
	Stage    evaluation.Stage
	Limit    int
	Offset   int
}

// MCQRepo stores produced questions.
type MCQRepo interface {
	// SaveMCQ inserts rec, assigning ID (when empty), Sequence and timestamps.
	SaveMCQ(ctx context.Context, rec *MCQRecord) error

	// GetMCQ returns the record with id, or ErrNotFound.
	GetMCQ(ctx context.Context, id string) (*MCQRecord, error)

	// ListMCQs returns records newest first.
	ListMCQs(ctx context.Context, f MCQFilter) ([]MCQRecord, error)

	// UpdateMCQ replaces the question body, stage and revision count of id.
	UpdateMCQ(ctx context.Context, id string, stage evaluation.Stage, revisions int, q *mcq.MCQ) error

	// CountByStage returns the number of records per stage.
	CountByStage(ctx context.Context) (map[evaluation.Stage]int, error)
}

// LLMRequestEvent is a persisted oracle exchange.
type LLMRequestEvent struct {
	ID           int
	Sequence     int64
	Timestamp    time.Time
	Provider     string
	Model        string
	Purpose      string
	ThreadID     string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// PurposeUsage aggregates token usage for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to oracle request events.
type EventRepo interface {
	llm.EventRecorder

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event by id, or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates calls and tokens per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)

	// LLMUsageByModel aggregates calls and tokens per model.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}
