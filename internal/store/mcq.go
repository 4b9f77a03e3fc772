package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/mcqforge/internal/evaluation"
	"github.com/abhisek/mcqforge/internal/mcq"
)

// mcqRepo implements MCQRepo on the mcqs table.
type mcqRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

var mcqColumns = []string{
	"id", "sequence", "session", "category", "chapter", "node",
	"template", "stage", "revisions", "fallback", "body",
	"created_at", "updated_at",
}

type mcqRow struct {
	ID        string `sql:"id"`
	Sequence  int64  `sql:"sequence"`
	Session   string `sql:"session"`
	Category  string `sql:"category"`
	Chapter   string `sql:"chapter"`
	Node      string `sql:"node"`
	Template  string `sql:"template"`
	Stage     string `sql:"stage"`
	Revisions int    `sql:"revisions"`
	Fallback  bool   `sql:"fallback"`
	Body      string `sql:"body"`
	CreatedAt int64  `sql:"created_at"`
	UpdatedAt int64  `sql:"updated_at"`
}

func (row mcqRow) record() (MCQRecord, error) {
	var q mcq.MCQ
	if err := json.Unmarshal([]byte(row.Body), &q); err != nil {
		return MCQRecord{}, fmt.Errorf("decode mcq %s: %w", row.ID, err)
	}
	return MCQRecord{
		ID:        row.ID,
		Sequence:  row.Sequence,
		Session:   row.Session,
		Category:  row.Category,
		Chapter:   row.Chapter,
		Node:      row.Node,
		Stage:     evaluation.Stage(row.Stage),
		Revisions: row.Revisions,
		MCQ:       &q,
		CreatedAt: fromMillis(row.CreatedAt),
		UpdatedAt: fromMillis(row.UpdatedAt),
	}, nil
}

func (r *mcqRepo) SaveMCQ(ctx context.Context, rec *MCQRecord) error {
	if rec == nil || rec.MCQ == nil {
		return fmt.Errorf("save mcq: no question")
	}
	if rec.Stage == "" {
		rec.Stage = evaluation.StageGenerated
	}
	if !rec.Stage.Valid() {
		return fmt.Errorf("save mcq: unknown stage %q", rec.Stage)
	}
	body, err := json.Marshal(rec.MCQ)
	if err != nil {
		return fmt.Errorf("encode mcq: %w", err)
	}

	seq, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("save mcq: %w", err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)

	query, args := builder().Insert(tableMCQs).
		Columns(mcqColumns...).
		Values(rec.ID, seq, rec.Session, rec.Category, rec.Chapter, rec.Node,
			rec.MCQ.Template, string(rec.Stage), rec.Revisions, rec.MCQ.Fallback, string(body),
			toMillis(now), toMillis(now)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("save mcq: %w", err)
	}

	rec.Sequence = seq
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

func (r *mcqRepo) GetMCQ(ctx context.Context, id string) (*MCQRecord, error) {
	sel := builder().Select(mcqColumns...).
		From(builder().Table(tableMCQs)).
		Where(entsql.EQ("id", id))
	rows, err := queryAll[mcqRow](ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("get mcq: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("mcq %s: %w", id, ErrNotFound)
	}
	rec, err := rows[0].record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *mcqRepo) ListMCQs(ctx context.Context, f MCQFilter) ([]MCQRecord, error) {
	sel := builder().Select(mcqColumns...).
		From(builder().Table(tableMCQs)).
		OrderBy(entsql.Desc("sequence"))

	var preds []*entsql.Predicate
	if f.Category != "" {
		preds = append(preds, entsql.EQ("category", f.Category))
	}
	if f.Chapter != "" {
		preds = append(preds, entsql.EQ("chapter", f.Chapter))
	}
	if f.Session != "" {
		preds = append(preds, entsql.EQ("session", f.Session))
	}
	if f.Stage != "" {
		preds = append(preds, entsql.EQ("stage", string(f.Stage)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}
	if f.Offset > 0 {
		if f.Limit <= 0 {
			// SQLite requires LIMIT before OFFSET.
			sel.Limit(-1)
		}
		sel.Offset(f.Offset)
	}

	rows, err := queryAll[mcqRow](ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("list mcqs: %w", err)
	}
	out := make([]MCQRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *mcqRepo) UpdateMCQ(ctx context.Context, id string, stage evaluation.Stage, revisions int, q *mcq.MCQ) error {
	if !stage.Valid() {
		return fmt.Errorf("update mcq: unknown stage %q", stage)
	}
	upd := builder().Update(tableMCQs).
		Set("stage", string(stage)).
		Set("revisions", revisions).
		Set("updated_at", toMillis(time.Now()))
	if q != nil {
		body, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("encode mcq: %w", err)
		}
		upd.Set("body", string(body)).
			Set("template", q.Template).
			Set("fallback", q.Fallback)
	}
	query, args := upd.Where(entsql.EQ("id", id)).Query()

	n, err := exec(ctx, r.drv, query, args)
	if err != nil {
		return fmt.Errorf("update mcq: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mcq %s: %w", id, ErrNotFound)
	}
	return nil
}

type stageCountRow struct {
	Stage string `sql:"stage"`
	Count int    `sql:"n"`
}

func (r *mcqRepo) CountByStage(ctx context.Context) (map[evaluation.Stage]int, error) {
	sel := builder().Select("stage", entsql.As(entsql.Count("*"), "n")).
		From(builder().Table(tableMCQs)).
		GroupBy("stage")
	rows, err := queryAll[stageCountRow](ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("count mcqs: %w", err)
	}
	out := make(map[evaluation.Stage]int, len(rows))
	for _, row := range rows {
		out[evaluation.Stage(row.Stage)] = row.Count
	}
	return out, nil
}
