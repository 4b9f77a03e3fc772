package contenttree

import (
	"context"
	"fmt"

	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/logger"
)

// BuilderConfig controls outline generation.
type BuilderConfig struct {
	MaxTokens   int
	Temperature float64
	// MaxNewEntries caps the entries requested per expansion. Zero means no cap.
	MaxNewEntries int
}

// DefaultBuilderConfig returns the recommended outline settings.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MaxTokens:     8192,
		Temperature:   0.3,
		MaxNewEntries: 40,
	}
}

// Builder creates and extends chapter outlines with the oracle.
type Builder struct {
	provider llm.Provider
	config   BuilderConfig
	log      *logger.Logger
}

// NewBuilder returns a Builder using provider.
func NewBuilder(provider llm.Provider, cfg BuilderConfig, log *logger.Logger) *Builder {
	return &Builder{provider: provider, config: cfg, log: logger.OrNop(log)}
}

// Build asks the oracle for a complete outline of a chapter.
func (b *Builder) Build(ctx context.Context, in ChapterInput) (*Tree, error) {
	ctx = llm.WithPurpose(ctx, "outline")

	resp, err := b.provider.Generate(ctx, llm.Request{
		System:      outlineSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildOutlineMessage(in)}},
		Schema:      OutlineSchema,
		MaxTokens:   b.config.MaxTokens,
		Temperature: b.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	var tree Tree
	if err := llm.DecodeJSON(resp.Content, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse outline: %w", err)
	}
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("outline for %s/%s: %w", in.Category, in.Chapter, err)
	}

	b.log.Info("outline built",
		"category", in.Category,
		"chapter", in.Chapter,
		"topics", len(tree.Topics),
		"nodes", tree.NodeCount(),
	)
	return &tree, nil
}

// Expand asks the oracle for entries missing from tree and merges them. The
// input tree is not modified. When some entries cannot be placed, the merged
// tree is returned together with the joined *InvalidPathError values.
func (b *Builder) Expand(ctx context.Context, tree *Tree, in ChapterInput) (*Tree, error) {
	ctx = llm.WithPurpose(ctx, "outline-expand")

	resp, err := b.provider.Generate(ctx, llm.Request{
		System:      expandSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildExpandMessage(in, tree, b.config.MaxNewEntries)}},
		Schema:      ExpansionSchema,
		MaxTokens:   b.config.MaxTokens,
		Temperature: b.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("outline expansion failed: %w", err)
	}

	var entries NewEntries
	if err := llm.DecodeJSON(resp.Content, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse expansion: %w", err)
	}

	merged, mergeErr := MergeNewEntries(tree, entries)
	if mergeErr != nil {
		b.log.Warn("skipped outline entries",
			"category", in.Category,
			"chapter", in.Chapter,
			"error", mergeErr,
		)
	}
	b.log.Info("outline expanded",
		"category", in.Category,
		"chapter", in.Chapter,
		"entries", entries.Count(),
		"nodes", merged.NodeCount(),
	)
	return merged, mergeErr
}
