package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/batch"
	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/server"
)

// sessionRetention is how long finished batch sessions stay queryable.
const sessionRetention = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		cfg := env.cfg
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		ctx := cmd.Context()

		deps := server.Deps{
			Mappings:    env.store.MappingRepo(),
			MCQs:        env.store.MCQRepo(),
			Transformer: env.transformer(),
			Catalog:     mcq.DefaultCatalog(),
		}

		// Oracle-backed routes are only mounted when a provider is configured.
		if _, err := env.provider(ctx); err != nil {
			env.log.Warn("LLM features unavailable", "error", err)
		} else {
			hub := batch.NewHub(env.log)
			publisher := batch.Publishers{hub}

			if cfg.Progress.RedisAddr != "" {
				relay, err := batch.NewRedisRelay(ctx, cfg.Progress.RedisAddr, cfg.Progress.Channel, uuid.NewString(), env.log)
				if err != nil {
					return err
				}
				env.closers = append(env.closers, relay.Close)
				publisher = append(publisher, relay)
				go func() {
					if err := relay.Forward(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
						env.log.Error("progress relay stopped", "error", err)
					}
				}()
			}

			if deps.Outliner, err = env.builder(ctx); err != nil {
				return err
			}
			gen, err := env.generator(ctx)
			if err != nil {
				return err
			}
			deps.Statements = gen
			rev, err := env.reviewer(ctx)
			if err != nil {
				return err
			}
			deps.Reviewer = rev
			if deps.Producer, err = env.producer(ctx, publisher); err != nil {
				return err
			}
			deps.Hub = hub

			go pruneSessions(ctx, deps.Producer.Sessions())
		}

		srv := server.New(server.Config{
			Addr:        cfg.Server.Addr,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, deps, env.log)
		return srv.Run(ctx)
	},
}

func pruneSessions(ctx context.Context, sessions *batch.Sessions) {
	ticker := time.NewTicker(sessionRetention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Prune(time.Now().Add(-sessionRetention))
		}
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides config and MCQFORGE_ADDR)")
}
