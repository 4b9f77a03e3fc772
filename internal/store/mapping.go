package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/mcqforge/internal/contenttree"
)

// mappingRepo implements MappingRepo on the content_mappings table.
type mappingRepo struct {
	drv *entsql.Driver
}

type mappingRow struct {
	Category  string `sql:"category"`
	Chapter   string `sql:"chapter"`
	Tree      string `sql:"tree"`
	NodeCount int    `sql:"node_count"`
	UpdatedAt int64  `sql:"updated_at"`
}

func (r *mappingRepo) FindMapping(ctx context.Context, category, chapter string) (*contenttree.Tree, error) {
	sel := builder().Select("category", "chapter", "tree", "node_count", "updated_at").
		From(builder().Table(tableMappings)).
		Where(entsql.And(
			entsql.EQ("category", category),
			entsql.EQ("chapter", chapter),
		))
	rows, err := queryAll[mappingRow](ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("find mapping: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var tree contenttree.Tree
	if err := json.Unmarshal([]byte(rows[0].Tree), &tree); err != nil {
		return nil, fmt.Errorf("decode mapping %s/%s: %w", category, chapter, err)
	}
	return &tree, nil
}

func (r *mappingRepo) SaveMapping(ctx context.Context, category, chapter string, tree *contenttree.Tree) error {
	if tree == nil {
		tree = &contenttree.Tree{}
	}
	body, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}

	now := toMillis(time.Now())
	query, args := builder().Insert(tableMappings).
		Columns("category", "chapter", "tree", "node_count", "created_at", "updated_at").
		Values(category, chapter, string(body), tree.NodeCount(), now, now).
		OnConflict(
			entsql.ConflictColumns("category", "chapter"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("tree")
				u.SetExcluded("node_count")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

func (r *mappingRepo) ListChapters(ctx context.Context, category string) ([]ChapterInfo, error) {
	sel := builder().Select("category", "chapter", "node_count", "updated_at").
		From(builder().Table(tableMappings)).
		OrderBy(entsql.Asc("category"), entsql.Asc("chapter"))
	if category != "" {
		sel.Where(entsql.EQ("category", category))
	}
	rows, err := queryAll[mappingRow](ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}

	out := make([]ChapterInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, ChapterInfo{
			Category:  row.Category,
			Chapter:   row.Chapter,
			NodeCount: row.NodeCount,
			UpdatedAt: fromMillis(row.UpdatedAt),
		})
	}
	return out, nil
}

func (r *mappingRepo) DeleteMapping(ctx context.Context, category, chapter string) error {
	query, args := builder().Delete(tableMappings).
		Where(entsql.And(
			entsql.EQ("category", category),
			entsql.EQ("chapter", chapter),
		)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}
