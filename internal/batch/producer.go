package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/evaluation"
	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/logger"
	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/statements"
	"github.com/abhisek/mcqforge/internal/store"
)

// Limits on a single request.
const (
	MaxCount   = 500
	MaxWorkers = 8
)

// Request describes one production run.
type Request struct {
	Category string `json:"category"`
	Chapter  string `json:"chapter"`
	Count    int    `json:"count"`
	// Workers is the number of parallel oracle threads. Defaults to 1.
	Workers int `json:"workers,omitempty"`
	// FalseCount fixes the number of false statements per batch. Nil draws
	// 0-4 at random for every item.
	FalseCount *int `json:"falseCount,omitempty"`
	// StatementCount fixes how many statements each question shows (2-4).
	// Zero lets the transformer choose.
	StatementCount int  `json:"statementCount,omitempty"`
	Evaluate       bool `json:"evaluate,omitempty"`
}

// Validate checks the request's bounds.
func (r Request) Validate() error {
	var errs []error
	if r.Category == "" || r.Chapter == "" {
		errs = append(errs, errors.New("category and chapter are required"))
	}
	if r.Count < 1 || r.Count > MaxCount {
		errs = append(errs, fmt.Errorf("count must be between 1 and %d", MaxCount))
	}
	if r.Workers < 0 || r.Workers > MaxWorkers {
		errs = append(errs, fmt.Errorf("workers must be at most %d", MaxWorkers))
	}
	if r.FalseCount != nil && (*r.FalseCount < 0 || *r.FalseCount > statements.BatchSize) {
		errs = append(errs, fmt.Errorf("falseCount must be between 0 and %d", statements.BatchSize))
	}
	if r.StatementCount != 0 && !slices.Contains(mcq.Counts, r.StatementCount) {
		errs = append(errs, fmt.Errorf("statementCount must be one of %v", mcq.Counts))
	}
	return errors.Join(errs...)
}

func (r Request) workers() int {
	return min(max(r.Workers, 1), r.Count)
}

// TreeSource loads a chapter's content tree.
type TreeSource interface {
	FindMapping(ctx context.Context, category, chapter string) (*contenttree.Tree, error)
}

// StatementSource produces statement batches.
type StatementSource interface {
	Generate(ctx context.Context, tc statements.TopicContext, falseCount int) (*statements.Batch, error)
}

// Reviewer runs a question through the evaluation loop.
type Reviewer interface {
	Run(ctx context.Context, q *mcq.MCQ) (*evaluation.Outcome, error)
}

// Sink stores produced questions.
type Sink interface {
	SaveMCQ(ctx context.Context, rec *store.MCQRecord) error
}

// Deps are the collaborators of a Producer. Reviewer may be nil, in which
// case Request.Evaluate is ignored.
type Deps struct {
	Trees       TreeSource
	Statements  StatementSource
	Transformer *mcq.Transformer
	Reviewer    Reviewer
	Sink        Sink
	Sessions    *Sessions
	Publisher   Publisher
	Rand        *rand.Rand
}

// Producer runs production sessions.
type Producer struct {
	deps     Deps
	selector *contenttree.Selector
	log      *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewProducer creates a Producer. A nil Rand is seeded from the clock.
func NewProducer(deps Deps, log *logger.Logger) *Producer {
	rng := deps.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessions()
	}
	return &Producer{
		deps:     deps,
		selector: contenttree.NewSelector(rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))),
		log:      logger.OrNop(log).With("component", "batch.Producer"),
		rng:      rng,
	}
}

// Sessions returns the registry sessions are recorded in.
func (p *Producer) Sessions() *Sessions {
	return p.deps.Sessions
}

// Start validates req, loads the chapter and runs the session in the
// background. Events are published as items finish; the session's Done
// channel closes after the terminal event.
func (p *Producer) Start(ctx context.Context, req Request) (*Session, error) {
	tree, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	sess := p.deps.Sessions.Start(req)
	go p.run(context.WithoutCancel(ctx), sess, tree)
	return sess, nil
}

// Run is Start that blocks until the session ends and returns its final event.
func (p *Producer) Run(ctx context.Context, req Request) (*Session, Progress, error) {
	tree, err := p.prepare(ctx, req)
	if err != nil {
		return nil, Progress{}, err
	}
	sess := p.deps.Sessions.Start(req)
	final := p.run(ctx, sess, tree)
	return sess, final, nil
}

func (p *Producer) prepare(ctx context.Context, req Request) (*contenttree.Tree, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tree, err := p.deps.Trees.FindMapping(ctx, req.Category, req.Chapter)
	if err != nil {
		return nil, fmt.Errorf("load chapter: %w", err)
	}
	if tree == nil || len(contenttree.Flatten(tree)) == 0 {
		return nil, fmt.Errorf("chapter %s/%s: %w", req.Category, req.Chapter, contenttree.ErrEmptyTree)
	}
	return tree, nil
}

func (p *Producer) run(ctx context.Context, sess *Session, tree *contenttree.Tree) Progress {
	defer sess.finish()

	req := sess.Request
	workers := req.workers()
	log := p.log.With("session", sess.ID, "category", req.Category, "chapter", req.Chapter)
	log.Info("production started", "count", req.Count, "workers", workers, "evaluate", req.Evaluate)

	// Each in-flight item holds one thread id, so a thread never carries two
	// oracle conversations at once.
	threads := make(chan string, workers)
	for i := range workers {
		threads <- fmt.Sprintf("%s/w%d", sess.ID, i)
	}

	var mu sync.Mutex
	state := Progress{Session: sess.ID, Status: StatusProgress, Requested: req.Count}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < req.Count; i++ {
		if sess.Cancelled() || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			thread := <-threads
			defer func() { threads <- thread }()
			if sess.Cancelled() || gctx.Err() != nil {
				return nil
			}

			res := p.produceOne(gctx, sess, tree, thread)

			mu.Lock()
			defer mu.Unlock()
			ev := Progress{Node: res.node}
			switch {
			case res.err != nil:
				state.Failed++
				ev.Status = StatusError
				ev.Message = res.err.Error()
				log.Warn("item failed", "item", i, "node", res.node, "error", res.err)
			case res.record.Stage == evaluation.StageRejected:
				state.Rejected++
				ev.MCQID = res.record.ID
				log.Info("item rejected", "item", i, "mcq", res.record.ID)
			default:
				state.Produced++
				ev.MCQID = res.record.ID
				log.Debug("item produced", "item", i, "mcq", res.record.ID, "stage", res.record.Stage)
			}
			ev.Session, ev.Requested = state.Session, state.Requested
			ev.Produced, ev.Rejected, ev.Failed = state.Produced, state.Rejected, state.Failed
			if ev.Status == "" {
				ev.Status = StatusProgress
			}
			p.emit(sess, ev)
			return nil
		})
	}
	_ = g.Wait()

	final := state
	final.Status = StatusCompleted
	if sess.Cancelled() || ctx.Err() != nil {
		final.Status = StatusCancelled
	}
	p.emit(sess, final)
	log.Info("production finished", "status", final.Status, "produced", final.Produced,
		"rejected", final.Rejected, "failed", final.Failed)
	return final
}

func (p *Producer) emit(sess *Session, ev Progress) {
	ev.Time = time.Now().UTC()
	sess.record(ev)
	if p.deps.Publisher != nil {
		p.deps.Publisher.Publish(ev)
	}
}

type itemResult struct {
	node   string
	record *store.MCQRecord
	err    error
}

// produceOne runs one select, generate, transform, review, save cycle. The
// question is saved before the result is reported.
func (p *Producer) produceOne(ctx context.Context, sess *Session, tree *contenttree.Tree, thread string) itemResult {
	req := sess.Request

	node, err := p.selector.Select(tree)
	if err != nil {
		return itemResult{err: err}
	}
	res := itemResult{node: node}

	ctx = llm.WithThread(ctx, thread)
	tc := statements.TopicContext{Category: req.Category, Chapter: req.Chapter, Node: node}
	batch, err := p.deps.Statements.Generate(ctx, tc, p.falseCount(req))
	if err != nil {
		res.err = err
		return res
	}

	var q *mcq.MCQ
	if req.StatementCount == 0 {
		q, err = p.deps.Transformer.Transform(batch)
	} else {
		q, err = p.deps.Transformer.TransformWithCount(batch, req.StatementCount)
	}
	if err != nil {
		res.err = err
		return res
	}

	rec := &store.MCQRecord{
		Session:  sess.ID,
		Category: req.Category,
		Chapter:  req.Chapter,
		Node:     node,
		Stage:    evaluation.StageGenerated,
		MCQ:      q,
	}
	if req.Evaluate && p.deps.Reviewer != nil {
		out, err := p.deps.Reviewer.Run(ctx, q)
		if err != nil {
			// The unreviewed question is still worth keeping.
			p.log.Warn("evaluation failed; saving as generated", "session", sess.ID, "node", node, "error", err)
		} else {
			rec.Stage = out.Stage
			rec.Revisions = out.Revisions
			rec.MCQ = out.MCQ
		}
	}

	if err := p.deps.Sink.SaveMCQ(context.WithoutCancel(ctx), rec); err != nil {
		res.err = fmt.Errorf("save mcq: %w", err)
		return res
	}
	res.record = rec
	return res
}

func (p *Producer) falseCount(req Request) int {
	if req.FalseCount != nil {
		return *req.FalseCount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(statements.BatchSize + 1)
}
