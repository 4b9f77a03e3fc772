package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/batch"
	"github.com/abhisek/mcqforge/internal/config"
	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/evaluation"
	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/logger"
	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/statements"
	"github.com/abhisek/mcqforge/internal/store"
	"github.com/abhisek/mcqforge/internal/threads"
)

// appEnv holds what most commands share: configuration, logger and store,
// plus the oracle once a command asks for it.
type appEnv struct {
	cfg   *config.Config
	log   *logger.Logger
	store *store.Store

	oracle  llm.Provider
	closers []func() error
}

// openEnv loads configuration, builds the logger and opens the store.
func openEnv(cmd *cobra.Command) (*appEnv, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if mode, _ := cmd.Flags().GetString("log"); mode != "" {
		cfg.Log = mode
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	dbPath, err := resolveDBPath(cmd, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &appEnv{cfg: cfg, log: log, store: st}, nil
}

// Close releases everything the environment opened, newest first.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn("close", "error", err)
		}
	}
	if err := e.store.Close(); err != nil {
		e.log.Warn("close store", "error", err)
	}
	e.log.Sync()
}

// provider builds the oracle on first use. Requests are logged to the
// store, retried, and serialized per thread id.
func (e *appEnv) provider(ctx context.Context) (llm.Provider, error) {
	if e.oracle != nil {
		return e.oracle, nil
	}
	p, err := llm.NewProvider(ctx, e.cfg.LLMProviderConfig(), e.store.EventRepo(), e.log)
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	locker, err := e.locker(ctx)
	if err != nil {
		return nil, err
	}
	e.oracle = threads.Serialize(p, locker)
	return e.oracle, nil
}

func (e *appEnv) locker(ctx context.Context) (threads.Locker, error) {
	switch e.cfg.Threads.Backend {
	case "redis":
		l, err := threads.NewRedisLocker(ctx, e.cfg.RedisLockConfig(), e.log)
		if err != nil {
			return nil, fmt.Errorf("thread locker: %w", err)
		}
		e.closers = append(e.closers, l.Close)
		return l, nil
	default:
		return threads.NewMemoryLocker(), nil
	}
}

func (e *appEnv) builder(ctx context.Context) (*contenttree.Builder, error) {
	p, err := e.provider(ctx)
	if err != nil {
		return nil, err
	}
	return contenttree.NewBuilder(p, e.cfg.BuilderConfig(), e.log), nil
}

func (e *appEnv) generator(ctx context.Context) (*statements.Generator, error) {
	p, err := e.provider(ctx)
	if err != nil {
		return nil, err
	}
	return statements.New(p, e.cfg.StatementConfig(), e.log), nil
}

func (e *appEnv) reviewer(ctx context.Context) (*evaluation.Loop, error) {
	p, err := e.provider(ctx)
	if err != nil {
		return nil, err
	}
	ev := evaluation.NewEvaluator(p, evaluation.DefaultConfig(), e.log)
	return evaluation.NewLoop(ev, e.cfg.Generation.MaxRevisions, e.log), nil
}

func (e *appEnv) transformer() *mcq.Transformer {
	return mcq.NewTransformer(mcq.DefaultCatalog(), nil, e.log)
}

// producer wires a batch producer that saves to the store and publishes to pub.
func (e *appEnv) producer(ctx context.Context, pub batch.Publisher) (*batch.Producer, error) {
	gen, err := e.generator(ctx)
	if err != nil {
		return nil, err
	}
	rev, err := e.reviewer(ctx)
	if err != nil {
		return nil, err
	}
	return batch.NewProducer(batch.Deps{
		Trees:       e.store.MappingRepo(),
		Statements:  gen,
		Transformer: e.transformer(),
		Reviewer:    rev,
		Sink:        e.store.MCQRepo(),
		Publisher:   pub,
	}, e.log), nil
}

// loadTree returns the stored chapter or an error naming it.
func (e *appEnv) loadTree(ctx context.Context, category, chapter string) (*contenttree.Tree, error) {
	tree, err := e.store.MappingRepo().FindMapping(ctx, category, chapter)
	if err != nil {
		return nil, fmt.Errorf("load chapter: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("chapter %s/%s: %w", category, chapter, store.ErrNotFound)
	}
	return tree, nil
}

var errNoInput = errors.New("no input: pass a file or pipe JSON on stdin")
