package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// Table names.
const (
	tableMappings  = "content_mappings"
	tableMCQs      = "mcqs"
	tableLLMEvents = "llm_request_events"
)

// schema lists the DDL applied on Open. Statements must be idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS content_mappings (
		category TEXT NOT NULL,
		chapter TEXT NOT NULL,
		tree TEXT NOT NULL,
		node_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (category, chapter)
	)`,
	`CREATE TABLE IF NOT EXISTS mcqs (
		id TEXT PRIMARY KEY,
		sequence INTEGER NOT NULL,
		session TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		chapter TEXT NOT NULL,
		node TEXT NOT NULL,
		template TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL,
		revisions INTEGER NOT NULL DEFAULT 0,
		fallback INTEGER NOT NULL DEFAULT 0,
		body TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS mcqs_chapter ON mcqs (category, chapter)`,
	`CREATE INDEX IF NOT EXISTS mcqs_session ON mcqs (session)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		thread_id TEXT NOT NULL DEFAULT '',
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS llm_request_events_purpose ON llm_request_events (purpose)`,
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range schema {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
