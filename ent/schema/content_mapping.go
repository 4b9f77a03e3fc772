package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ContentMapping is the content tree of one chapter. (category, chapter)
// is the primary key; a save replaces the whole tree.
type ContentMapping struct {
	ent.Schema
}

func (ContentMapping) Fields() []ent.Field {
	return []ent.Field{
		field.String("category").
			NotEmpty(),
		field.String("chapter").
			NotEmpty(),
		field.Text("tree").
			Comment("JSON-encoded topic tree"),
		field.Int("node_count").
			Default(0).
			Comment("Labelled nodes in the tree, particulars included"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (ContentMapping) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("category", "chapter").
			Unique(),
	}
}
