package store

import (
	"context"
	"slices"
	"testing"

	"entgo.io/ent"

	entschema "github.com/abhisek/mcqforge/ent/schema"
)

// schemaColumns returns the field names an ent schema declares, mixins
// first, without the implicit id.
func schemaColumns(fields []ent.Field, mixins ...ent.Mixin) []string {
	var out []string
	for _, m := range mixins {
		for _, f := range m.Fields() {
			out = append(out, f.Descriptor().Name)
		}
	}
	for _, f := range fields {
		if name := f.Descriptor().Name; name != "id" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func tableColumns(t *testing.T, s *Store, table string) []string {
	t.Helper()
	rows, err := s.DB().QueryContext(context.Background(), "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table info %s: %v", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if name != "id" {
			out = append(out, name)
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	slices.Sort(out)
	return out
}

func TestTablesMatchEntSchema(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		table string
		want  []string
	}{
		{tableMappings, schemaColumns(entschema.ContentMapping{}.Fields())},
		{tableMCQs, schemaColumns(entschema.MCQ{}.Fields())},
		{tableLLMEvents, schemaColumns(entschema.LLMRequestEvent{}.Fields(), entschema.LLMRequestEvent{}.Mixin()...)},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			got := tableColumns(t, s, tt.table)
			if !slices.Equal(got, tt.want) {
				t.Errorf("columns = %v\nschema  = %v", got, tt.want)
			}
		})
	}
}
