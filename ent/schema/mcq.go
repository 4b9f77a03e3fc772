package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MCQ is a produced question and its position in the review pipeline.
type MCQ struct {
	ent.Schema
}

func (MCQ) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Immutable().
			Comment("UUID"),
		field.Int64("sequence").
			Immutable(),
		field.String("session").
			Default("").
			Comment("Batch session that produced the question"),
		field.String("category"),
		field.String("chapter"),
		field.String("node").
			Comment("Outline node the statements were written about"),
		field.String("template").
			Default(""),
		field.Enum("stage").
			Values("generated", "approved", "repaired", "rejected").
			Default("generated"),
		field.Int("revisions").
			Default(0),
		field.Bool("fallback").
			Default(false),
		field.Text("body").
			Comment("JSON-encoded question"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (MCQ) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("category", "chapter"),
		index.Fields("session"),
	}
}
